package noaa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/httpx"
	"natgas-forecast/internal/storage/memory"
	"natgas-forecast/internal/watermark"
)

func TestStations(t *testing.T) {
	assert.Len(t, Stations, 26)
	assert.Equal(t, Location{"Houston", "Texas"}, Stations["GHCND:USW00012960"])
	ids := StationIDs()
	assert.Len(t, ids, 26)
	assert.IsIncreasing(t, ids)
}

func TestWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	from, to := Window(start, 0)
	assert.Equal(t, "2024-01-01", from.Format(time.DateOnly))
	assert.Equal(t, "2024-01-06", to.Format(time.DateOnly))

	from, to = Window(start, 2)
	assert.Equal(t, "2024-01-13", from.Format(time.DateOnly))
	assert.Equal(t, "2024-01-18", to.Format(time.DateOnly))
}

func TestSource_FetchPageRequestAndEnrichment(t *testing.T) {
	var q url.Values
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		token = r.Header.Get("token")
		fmt.Fprint(w, `{"results":[
			{"date":"2024-01-01T00:00:00","datatype":"TMAX","station":"GHCND:USW00094846","value":-3.2},
			{"date":"2024-01-01T00:00:00","datatype":"TMAX","station":"GHCND:USW99999999","value":1.0}
		]}`)
	}))
	defer srv.Close()

	src := NewClient(Config{Token: "tok", URL: srv.URL}).Dataset(Query{})
	records, err := src.FetchPage(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Chicago", records[0]["city"])
	assert.Equal(t, "Illinois", records[0]["state"])

	assert.Equal(t, "tok", token)
	assert.Equal(t, "GHCND", q.Get("datasetid"))
	assert.Equal(t, DefaultDataTypes, q["datatypeid"])
	assert.Len(t, q["stationid"], 26)
	assert.Equal(t, "2024-01-07", q.Get("startdate"))
	assert.Equal(t, "2024-01-12", q.Get("enddate"))
	assert.Equal(t, "metric", q.Get("units"))
	assert.Equal(t, "1000", q.Get("limit"))
}

func TestSource_NullResultsEndPull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":null}`)
	}))
	defer srv.Close()

	records, err := NewClient(Config{URL: srv.URL}).Dataset(Query{}).FetchPage(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv2.Close()

	records, err = NewClient(Config{URL: srv2.URL}).Dataset(Query{}).FetchPage(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSource_RetriesTimeouts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			time.Sleep(200 * time.Millisecond)
			return
		}
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timeout: 30 * time.Millisecond}, httpx.WithRetryDelay(time.Millisecond))
	_, err := c.Dataset(Query{}).FetchPage(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSource_RetryExhaustionFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timeout: 30 * time.Millisecond}, httpx.WithRetryDelay(time.Millisecond))
	_, err := c.Dataset(Query{}).FetchPage(context.Background(), time.Now(), 0)
	assert.True(t, httpx.IsTransient(err))
	assert.Equal(t, int32(1+DefaultMaxRetries), calls.Load())
}

// End-to-end: sliding-window pages through the extractor until the
// upstream runs out of data.
func TestSource_WithExtractor(t *testing.T) {
	var mu sync.Mutex
	var windows []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("startdate")
		mu.Lock()
		windows = append(windows, start)
		n := len(windows)
		mu.Unlock()
		if n > 2 {
			fmt.Fprint(w, `{"results":null}`)
			return
		}
		d, _ := time.Parse(time.DateOnly, start)
		fmt.Fprintf(w, `{"results":[{"date":"%sT00:00:00","datatype":"TAVG","station":"GHCND:USW00012960","value":12.1}]}`,
			d.AddDate(0, 0, 5).Format(time.DateOnly))
	}))
	defer srv.Close()

	objects := memory.NewObjectStore()
	wm := watermark.New(objects, watermark.Options{})
	ex := extraction.New(extraction.Options{Objects: objects, Watermarks: wm})

	res, err := ex.Extract(context.Background(), extraction.Job{
		DatasetKey:   "daily_weather",
		Folder:       "daily_weather",
		DefaultStart: time.Date(1999, 1, 4, 0, 0, 0, 0, time.UTC),
		Source:       NewClient(Config{URL: srv.URL}).Dataset(Query{}),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1999-01-04", "1999-01-10", "1999-01-16"}, windows)
	assert.True(t, res.Committed)
	assert.Equal(t, "1999-01-15", res.MaxDate.Format(time.DateOnly))

	latest, err := wm.GetLatest(context.Background(), "daily_weather")
	require.NoError(t, err)
	assert.Equal(t, res.MaxDate, latest)
}
