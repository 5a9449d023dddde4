// Package extraction runs the watermark-driven incremental pull: resolve
// the start date from the dataset's watermark, page through the source
// until it returns nothing, then commit the blob and the new watermark.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"natgas-forecast/internal/observability"
	"natgas-forecast/internal/storage"
)

// Record is one raw upstream observation, stored as received plus any
// fields the source client adds.
type Record map[string]any

// Source pages through one upstream dataset.
type Source interface {
	// Name identifies the source in logs ("eia", "noaa").
	Name() string

	// DateField names the record field holding the observation date.
	DateField() string

	// FetchPage returns page number page (0-based) of the records starting
	// at start. An empty slice means there is nothing more to fetch.
	FetchPage(ctx context.Context, start time.Time, page int) ([]Record, error)
}

// Job describes one extraction.
type Job struct {
	DatasetKey   string    // watermark key
	Folder       string    // object store folder for the raw blob
	ObjectKey    string    // object key; Extractor derives <dataset>_<YYYYMMDD> when empty
	DefaultStart time.Time // used when the dataset has no watermark
	Source       Source
	MaxPages     int // 0 = until the source returns an empty page
}

// Result describes the outcome of one extraction.
type Result struct {
	DatasetKey string
	Start      time.Time
	Pages      int
	Records    int
	Committed  bool      // false when the source had nothing new
	MaxDate    time.Time // zero unless Committed
	ObjectKey  string
	Duration   time.Duration
}

// Options contains configuration for creating an Extractor.
type Options struct {
	Objects    storage.ObjectStore
	Watermarks storage.WatermarkStore
	Logger     *zap.Logger
	Now        func() time.Time
}

// Extractor commits extracted data and advances watermarks.
type Extractor struct {
	objects    storage.ObjectStore
	watermarks storage.WatermarkStore
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		objects:    opts.Objects,
		watermarks: opts.Watermarks,
		logger:     logger,
		now:        now,
	}
}

// ObjectKey returns the blob key for a dataset extracted on day.
func ObjectKey(datasetKey string, day time.Time) string {
	return fmt.Sprintf("%s_%s", datasetKey, day.Format("20060102"))
}

// Extract runs job. Any fetch error aborts before anything is written.
func (e *Extractor) Extract(ctx context.Context, job Job) (*Result, error) {
	if job.DatasetKey == "" || job.Source == nil {
		return nil, fmt.Errorf("extract: %w", storage.ErrInvalidInput)
	}

	began := e.now()
	result := &Result{DatasetKey: job.DatasetKey}
	log := e.logger.With(zap.String("dataset", job.DatasetKey), zap.String("source", job.Source.Name()))

	start, err := e.watermarks.GetLatest(ctx, job.DatasetKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		start = job.DefaultStart
		log.Info("no watermark, using default start", zap.String("start", start.Format(time.DateOnly)))
	case err != nil:
		return nil, fmt.Errorf("read watermark for %s: %w", job.DatasetKey, err)
	}
	result.Start = start

	var accumulated []Record
	for page := 0; job.MaxPages == 0 || page < job.MaxPages; page++ {
		records, err := job.Source.FetchPage(ctx, start, page)
		if err != nil {
			observability.RecordExtraction(job.DatasetKey, "failed", time.Time{})
			return nil, fmt.Errorf("extract %s page %d: %w", job.DatasetKey, page, err)
		}
		if len(records) == 0 {
			break
		}
		observability.RecordPage(job.DatasetKey, len(records))
		accumulated = append(accumulated, records...)
		result.Pages++

		log.Debug("page fetched", zap.Int("page", page), zap.Int("records", len(records)))
	}
	if job.MaxPages > 0 && result.Pages == job.MaxPages {
		log.Warn("page cap reached before an empty page", zap.Int("max_pages", job.MaxPages))
	}

	result.Records = len(accumulated)
	if len(accumulated) == 0 {
		result.Duration = e.now().Sub(began)
		observability.RecordExtraction(job.DatasetKey, "noop", time.Time{})
		log.Info("nothing new to extract", zap.String("start", start.Format(time.DateOnly)))
		return result, nil
	}

	maxDate, err := MaxDate(accumulated, job.Source.DateField())
	if err != nil {
		observability.RecordExtraction(job.DatasetKey, "failed", time.Time{})
		return nil, fmt.Errorf("extract %s: %w", job.DatasetKey, err)
	}

	data, err := json.Marshal(accumulated)
	if err != nil {
		return nil, fmt.Errorf("encode %s records: %w", job.DatasetKey, err)
	}

	key := job.ObjectKey
	if key == "" {
		key = ObjectKey(job.DatasetKey, began)
	}
	if err := e.objects.Put(ctx, job.Folder, key, data); err != nil {
		observability.RecordExtraction(job.DatasetKey, "failed", time.Time{})
		return nil, fmt.Errorf("store %s records: %w", job.DatasetKey, err)
	}
	if err := e.watermarks.Update(ctx, job.DatasetKey, maxDate); err != nil {
		observability.RecordExtraction(job.DatasetKey, "failed", time.Time{})
		return nil, fmt.Errorf("update watermark for %s: %w", job.DatasetKey, err)
	}

	result.Committed = true
	result.MaxDate = maxDate
	result.ObjectKey = key
	result.Duration = e.now().Sub(began)
	observability.RecordExtraction(job.DatasetKey, "committed", maxDate)

	log.Info("extraction committed",
		zap.Int("records", result.Records),
		zap.Int("pages", result.Pages),
		zap.String("max_date", maxDate.Format(time.DateOnly)),
		zap.String("object_key", key))

	return result, nil
}

// MaxDate returns the latest date held in field across records. Values may
// be YYYY-MM-DD, YYYY-MM (taken as the first of the month) or a longer
// timestamp whose first ten characters are a date.
func MaxDate(records []Record, field string) (time.Time, error) {
	var max time.Time
	for i, r := range records {
		raw, ok := r[field].(string)
		if !ok {
			return time.Time{}, fmt.Errorf("record %d: missing %q date field", i, field)
		}
		d, err := ParseDate(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("record %d: %w", i, err)
		}
		if d.After(max) {
			max = d
		}
	}
	return max, nil
}

// ParseDate parses the date forms the upstream APIs emit.
func ParseDate(raw string) (time.Time, error) {
	if len(raw) >= 10 {
		if d, err := time.Parse(time.DateOnly, raw[:10]); err == nil {
			return d, nil
		}
	}
	if len(raw) == 7 {
		if d, err := time.Parse("2006-01", raw); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}
