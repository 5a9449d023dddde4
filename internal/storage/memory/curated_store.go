package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"natgas-forecast/internal/storage"
)

// CuratedStore is an in-memory implementation of storage.CuratedStore.
type CuratedStore struct {
	mu   sync.RWMutex
	data map[string]*storage.CuratedRow // keyed by (run_id, date, column)
}

// NewCuratedStore creates a new in-memory curated store.
func NewCuratedStore() *CuratedStore {
	return &CuratedStore{
		data: make(map[string]*storage.CuratedRow),
	}
}

func curatedKey(r *storage.CuratedRow) string {
	return fmt.Sprintf("%s|%s|%s", r.RunID, r.Date.Format(time.DateOnly), r.Column)
}

// InsertBulk adds rows atomically. Fails entire batch on duplicate.
func (s *CuratedStore) InsertBulk(_ context.Context, rows []*storage.CuratedRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Column == "" {
			return storage.ErrInvalidInput
		}
		key := curatedKey(r)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		s.data[curatedKey(r)] = copyRow(r)
	}
	return nil
}

// GetByRun retrieves a run's rows ordered by (date, column).
func (s *CuratedStore) GetByRun(_ context.Context, runID string) ([]*storage.CuratedRow, error) {
	return s.filter(func(r *storage.CuratedRow) bool {
		return r.RunID == runID
	}), nil
}

// GetByDateRange retrieves a run's rows within [start, end] (inclusive).
func (s *CuratedStore) GetByDateRange(_ context.Context, runID string, start, end time.Time) ([]*storage.CuratedRow, error) {
	return s.filter(func(r *storage.CuratedRow) bool {
		return r.RunID == runID && !r.Date.Before(start) && !r.Date.After(end)
	}), nil
}

func (s *CuratedStore) filter(keep func(*storage.CuratedRow) bool) []*storage.CuratedRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.CuratedRow
	for _, r := range s.data {
		if keep(r) {
			result = append(result, copyRow(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Column < result[j].Column
	})
	return result
}

func copyRow(r *storage.CuratedRow) *storage.CuratedRow {
	c := *r
	if r.Value != nil {
		v := *r.Value
		c.Value = &v
	}
	return &c
}

var _ storage.CuratedStore = (*CuratedStore)(nil)
