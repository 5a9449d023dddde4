package postgres

import (
	"context"
	"fmt"
	"time"

	"natgas-forecast/internal/storage"
)

// WatermarkStore is a PostgreSQL implementation of storage.WatermarkStore.
// Each committed extraction date is a row in the watermarks table; the
// primary key on (dataset_key, watermark_date) keeps the list duplicate-free.
type WatermarkStore struct {
	pool *Pool
}

// NewWatermarkStore creates a new PostgreSQL watermark store.
func NewWatermarkStore(pool *Pool) *WatermarkStore {
	return &WatermarkStore{pool: pool}
}

var _ storage.WatermarkStore = (*WatermarkStore)(nil)

// GetLatest returns the maximum recorded date for a dataset.
func (s *WatermarkStore) GetLatest(ctx context.Context, datasetKey string) (time.Time, error) {
	if datasetKey == "" {
		return time.Time{}, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT MAX(watermark_date)
		FROM watermarks
		WHERE dataset_key = $1
	`, datasetKey)

	// MAX over no rows yields a single NULL.
	var latest *time.Time
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest watermark: %w", err)
	}
	if latest == nil {
		return time.Time{}, storage.ErrNotFound
	}

	return latest.UTC(), nil
}

// Update records date for the dataset. Re-recording an existing date is a no-op.
func (s *WatermarkStore) Update(ctx context.Context, datasetKey string, date time.Time) error {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO watermarks (dataset_key, watermark_date, recorded_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (dataset_key, watermark_date) DO NOTHING
	`, datasetKey, date.UTC().Format(time.DateOnly))
	if err != nil {
		return fmt.Errorf("insert watermark: %w", err)
	}
	return nil
}

// Dates returns every recorded date for the dataset, ascending.
func (s *WatermarkStore) Dates(ctx context.Context, datasetKey string) ([]string, error) {
	if datasetKey == "" {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, `
		SELECT watermark_date
		FROM watermarks
		WHERE dataset_key = $1
		ORDER BY watermark_date ASC
	`, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("query watermarks: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d.UTC().Format(time.DateOnly))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, storage.ErrNotFound
	}

	return dates, nil
}
