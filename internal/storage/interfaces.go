package storage

import (
	"context"
	"strings"
	"time"
)

// ContentTypeJSON is the content type every blob is written with.
const ContentTypeJSON = "application/json"

// ObjectStore is the blob get/put contract the pipeline depends on.
// Writes are whole-object overwrites; there are no partial or append writes.
type ObjectStore interface {
	// Get returns the raw bytes stored at folder/key. Returns ErrNotFound if absent.
	Get(ctx context.Context, folder, key string) ([]byte, error)

	// Put overwrites folder/key with data.
	Put(ctx context.Context, folder, key string, data []byte) error
}

// WatermarkStore persists the dataset_key -> sorted date list mapping.
type WatermarkStore interface {
	// GetLatest returns the maximum recorded date for a dataset.
	// Returns ErrNotFound if the dataset has never been extracted.
	GetLatest(ctx context.Context, datasetKey string) (time.Time, error)

	// Update appends date to the dataset's list if not already present.
	// The list stays sorted ascending; dates are never removed.
	Update(ctx context.Context, datasetKey string, date time.Time) error

	// Dates returns the dataset's list as YYYY-MM-DD strings, ascending.
	// Returns ErrNotFound if the dataset has never been extracted.
	Dates(ctx context.Context, datasetKey string) ([]string, error)
}

// CuratedRow is one cell of the curated feature table in long format.
type CuratedRow struct {
	RunID  string
	Date   time.Time
	Column string
	Value  *float64 // nil when the feature is null for that date
}

// CuratedStore persists curated feature tables produced by a pipeline run.
type CuratedStore interface {
	// InsertBulk adds rows atomically. Fails the entire batch on a duplicate
	// (run_id, date, column) and with ErrInvalidInput on an empty run id or column.
	InsertBulk(ctx context.Context, rows []*CuratedRow) error

	// GetByRun retrieves a run's rows ordered by (date, column).
	GetByRun(ctx context.Context, runID string) ([]*CuratedRow, error)

	// GetByDateRange retrieves a run's rows with date within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, runID string, start, end time.Time) ([]*CuratedRow, error)
}

// ObjectPath joins folder and key the way every backend addresses objects.
func ObjectPath(folder, key string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}
