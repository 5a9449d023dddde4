// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Extraction metrics
	PagesFetched       *prometheus.CounterVec
	RecordsExtracted   *prometheus.CounterVec
	RequestRetries     *prometheus.CounterVec
	ExtractionsTotal   *prometheus.CounterVec
	WatermarkTimestamp *prometheus.GaugeVec
	SourceLatency      *prometheus.HistogramVec

	// Storage metrics
	ObjectStoreOps      *prometheus.CounterVec
	ObjectStoreDuration *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	CuratedRows       prometheus.Gauge
	WindowsProduced   *prometheus.GaugeVec
	NotificationsSent *prometheus.CounterVec

	// Health metrics
	LastSuccessfulExtraction prometheus.Gauge
	LastSuccessfulPipeline   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "natgas_forecast"
	}

	return &Metrics{
		PagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "pages_fetched_total",
			Help:      "Total number of source pages fetched by dataset",
		}, []string{"dataset"}),
		RecordsExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "records_extracted_total",
			Help:      "Total number of raw records extracted by dataset",
		}, []string{"dataset"}),
		RequestRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "request_retries_total",
			Help:      "Total number of HTTP request retries by source",
		}, []string{"source"}),
		ExtractionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "runs_total",
			Help:      "Total number of extraction runs by dataset and outcome",
		}, []string{"dataset", "outcome"}),
		WatermarkTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "watermark_timestamp",
			Help:      "Unix timestamp of the latest committed watermark by dataset",
		}, []string{"dataset"}),
		SourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "source_request_latency_seconds",
			Help:      "Upstream API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		ObjectStoreOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "object_operations_total",
			Help:      "Total number of object store operations by backend, operation and status",
		}, []string{"backend", "operation", "status"}),
		ObjectStoreDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "object_operation_duration_seconds",
			Help:      "Object store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups by tier and result",
		}, []string{"tier", "result"}),

		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline phase runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline phase duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		CuratedRows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "curated_rows",
			Help:      "Number of rows in the latest curated table",
		}),
		WindowsProduced: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "windows",
			Help:      "Number of training windows produced by split",
		}, []string{"split"}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Total number of transform notifications by status",
		}, []string{"status"}),

		LastSuccessfulExtraction: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_extraction_timestamp",
			Help:      "Unix timestamp of last successful extraction",
		}),
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordPage records one fetched page and the records it carried.
func RecordPage(dataset string, records int) {
	DefaultMetrics.PagesFetched.WithLabelValues(dataset).Inc()
	DefaultMetrics.RecordsExtracted.WithLabelValues(dataset).Add(float64(records))
}

// RecordRetry increments the retry counter for an upstream source.
func RecordRetry(source string) {
	DefaultMetrics.RequestRetries.WithLabelValues(source).Inc()
}

// RecordSourceLatency records one upstream request duration.
func RecordSourceLatency(source string, d time.Duration) {
	DefaultMetrics.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
}

// RecordExtraction records an extraction outcome: "committed", "noop" or "failed".
// A committed extraction also advances the dataset's watermark gauge.
func RecordExtraction(dataset, outcome string, watermark time.Time) {
	DefaultMetrics.ExtractionsTotal.WithLabelValues(dataset, outcome).Inc()
	if outcome == "committed" {
		DefaultMetrics.WatermarkTimestamp.WithLabelValues(dataset).Set(float64(watermark.Unix()))
		DefaultMetrics.LastSuccessfulExtraction.SetToCurrentTime()
	}
}

// RecordObjectOp records an object store operation.
func RecordObjectOp(backend, operation string, d time.Duration, err error) {
	DefaultMetrics.ObjectStoreOps.WithLabelValues(backend, operation, status(err)).Inc()
	DefaultMetrics.ObjectStoreDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// RecordCacheLookup records a cache hit or miss for a tier ("lru" or "redis").
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordPipelineRun records a pipeline phase run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordPipelineOutput records the size of the latest run's outputs.
func RecordPipelineOutput(curatedRows, trainWindows, testWindows int) {
	DefaultMetrics.CuratedRows.Set(float64(curatedRows))
	DefaultMetrics.WindowsProduced.WithLabelValues("train").Set(float64(trainWindows))
	DefaultMetrics.WindowsProduced.WithLabelValues("test").Set(float64(testWindows))
	DefaultMetrics.LastSuccessfulPipeline.SetToCurrentTime()
}

// RecordNotification records a transform notification publish.
func RecordNotification(err error) {
	DefaultMetrics.NotificationsSent.WithLabelValues(status(err)).Inc()
}
