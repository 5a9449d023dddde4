package clickhouse

import (
	"context"
	"fmt"
	"time"

	"natgas-forecast/internal/storage"
)

// CuratedStore implements storage.CuratedStore using ClickHouse.
// Rows are stored long-format in the curated_features table.
type CuratedStore struct {
	conn *Conn
}

// NewCuratedStore creates a new CuratedStore.
func NewCuratedStore(conn *Conn) *CuratedStore {
	return &CuratedStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CuratedStore = (*CuratedStore)(nil)

type curatedKey struct {
	runID  string
	date   string
	column string
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
func (s *CuratedStore) InsertBulk(ctx context.Context, rows []*storage.CuratedRow) error {
	if len(rows) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[curatedKey]struct{}, len(rows))
	runs := make(map[string]struct{})
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Column == "" {
			return storage.ErrInvalidInput
		}
		k := curatedKey{r.RunID, r.Date.Format(time.DateOnly), r.Column}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runs[r.RunID] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check existing rows per run.
	for runID := range runs {
		existing, err := s.existingKeys(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for k := range seen {
			if _, dup := existing[k]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO curated_features (run_id, date, column_name, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		// Pass nil directly for the Nullable value column
		if err := batch.Append(r.RunID, r.Date, r.Column, r.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves a run's rows ordered by (date, column).
func (s *CuratedStore) GetByRun(ctx context.Context, runID string) ([]*storage.CuratedRow, error) {
	return s.query(ctx, `
		SELECT run_id, date, column_name, value
		FROM curated_features
		WHERE run_id = ?
		ORDER BY date ASC, column_name ASC
	`, runID)
}

// GetByDateRange retrieves a run's rows within [start, end] (inclusive).
func (s *CuratedStore) GetByDateRange(ctx context.Context, runID string, start, end time.Time) ([]*storage.CuratedRow, error) {
	return s.query(ctx, `
		SELECT run_id, date, column_name, value
		FROM curated_features
		WHERE run_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, column_name ASC
	`, runID, start, end)
}

func (s *CuratedStore) query(ctx context.Context, query string, args ...any) ([]*storage.CuratedRow, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query curated features: %w", err)
	}
	defer rows.Close()

	var result []*storage.CuratedRow
	for rows.Next() {
		var (
			r     storage.CuratedRow
			value *float64
		)
		if err := rows.Scan(&r.RunID, &r.Date, &r.Column, &value); err != nil {
			return nil, fmt.Errorf("scan curated row: %w", err)
		}
		r.Date = r.Date.UTC()
		r.Value = value
		result = append(result, &r)
	}
	return result, rows.Err()
}

func (s *CuratedStore) existingKeys(ctx context.Context, runID string) (map[curatedKey]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT run_id, date, column_name
		FROM curated_features
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[curatedKey]struct{})
	for rows.Next() {
		var (
			id, column string
			date       time.Time
		)
		if err := rows.Scan(&id, &date, &column); err != nil {
			return nil, err
		}
		keys[curatedKey{id, date.UTC().Format(time.DateOnly), column}] = struct{}{}
	}
	return keys, rows.Err()
}
