package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordExtraction_Committed(t *testing.T) {
	wm := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	before := testutil.ToFloat64(DefaultMetrics.ExtractionsTotal.WithLabelValues("test_ds", "committed"))

	RecordExtraction("test_ds", "committed", wm)

	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.ExtractionsTotal.WithLabelValues("test_ds", "committed")))
	assert.Equal(t, float64(wm.Unix()), testutil.ToFloat64(DefaultMetrics.WatermarkTimestamp.WithLabelValues("test_ds")))
}

func TestRecordExtraction_NoopLeavesWatermark(t *testing.T) {
	RecordExtraction("noop_ds", "noop", time.Now())
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.WatermarkTimestamp.WithLabelValues("noop_ds")))
}

func TestRecordObjectOp_Status(t *testing.T) {
	RecordObjectOp("memory", "put", time.Millisecond, nil)
	RecordObjectOp("memory", "put", time.Millisecond, errors.New("boom"))

	assert.GreaterOrEqual(t, testutil.ToFloat64(DefaultMetrics.ObjectStoreOps.WithLabelValues("memory", "put", "success")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(DefaultMetrics.ObjectStoreOps.WithLabelValues("memory", "put", "failure")), 1.0)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordPage("handler_ds", 3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "natgas_forecast_extraction_pages_fetched_total"))
}
