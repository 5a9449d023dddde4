// Package watermark keeps per-dataset extraction checkpoints as a single
// JSON document in an object store:
//
//	{"natural_gas_spot_prices": ["2024-01-02", "2024-02-05"], ...}
//
// Each list is ascending and duplicate-free. Dates are only ever appended.
// The read-modify-write in Update is not locked; concurrent runs against
// the same document race and the last writer wins.
package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"natgas-forecast/internal/storage"
)

const (
	// DefaultFolder and DefaultKey address the watermark document.
	DefaultFolder = "metadata"
	DefaultKey    = "metadata"
)

// Options configures a Store.
type Options struct {
	Folder string
	Key    string
	Logger *zap.Logger
}

// Store implements storage.WatermarkStore on top of an ObjectStore.
type Store struct {
	objects storage.ObjectStore
	folder  string
	key     string
	logger  *zap.Logger
}

var _ storage.WatermarkStore = (*Store)(nil)

// New creates a watermark store backed by objects.
func New(objects storage.ObjectStore, opts Options) *Store {
	if opts.Folder == "" {
		opts.Folder = DefaultFolder
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		objects: objects,
		folder:  opts.Folder,
		key:     opts.Key,
		logger:  opts.Logger,
	}
}

// load reads the whole mapping. A missing or unreadable document is the
// empty mapping: every dataset then counts as never extracted.
func (s *Store) load(ctx context.Context) map[string][]string {
	data, err := s.objects.Get(ctx, s.folder, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("watermark document unreadable, treating as empty",
				zap.String("folder", s.folder), zap.Error(err))
		}
		return map[string][]string{}
	}

	mapping := map[string][]string{}
	if err := json.Unmarshal(data, &mapping); err != nil {
		s.logger.Warn("watermark document is not valid JSON, treating as empty",
			zap.String("folder", s.folder), zap.Error(err))
		return map[string][]string{}
	}
	return mapping
}

// GetLatest returns the latest date recorded for datasetKey.
func (s *Store) GetLatest(ctx context.Context, datasetKey string) (time.Time, error) {
	dates := s.load(ctx)[datasetKey]
	if len(dates) == 0 {
		return time.Time{}, storage.ErrNotFound
	}

	var latest time.Time
	for _, d := range dates {
		t, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return time.Time{}, fmt.Errorf("watermark %s: parse %q: %w", datasetKey, d, err)
		}
		if t.After(latest) {
			latest = t
		}
	}
	return latest, nil
}

// Update appends date to datasetKey's list and persists the whole mapping.
func (s *Store) Update(ctx context.Context, datasetKey string, date time.Time) error {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}

	mapping := s.load(ctx)
	mapping[datasetKey] = insertSorted(mapping[datasetKey], date.UTC().Format(time.DateOnly))

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encode watermarks: %w", err)
	}
	if err := s.objects.Put(ctx, s.folder, s.key, data); err != nil {
		return fmt.Errorf("write watermarks: %w", err)
	}

	s.logger.Info("watermark updated",
		zap.String("dataset", datasetKey),
		zap.String("date", date.UTC().Format(time.DateOnly)))
	return nil
}

// Dates returns datasetKey's recorded dates, ascending.
func (s *Store) Dates(ctx context.Context, datasetKey string) ([]string, error) {
	dates := s.load(ctx)[datasetKey]
	if len(dates) == 0 {
		return nil, storage.ErrNotFound
	}
	return normalize(dates), nil
}

// All returns the whole mapping with every list normalized.
func (s *Store) All(ctx context.Context) map[string][]string {
	mapping := s.load(ctx)
	for k, v := range mapping {
		mapping[k] = normalize(v)
	}
	return mapping
}

// insertSorted adds d to dates unless present and returns the list sorted.
// Lists written by other tools are normalized on the way through.
func insertSorted(dates []string, d string) []string {
	return normalize(append(append([]string(nil), dates...), d))
}

// normalize sorts ascending and drops duplicates. YYYY-MM-DD strings sort
// the same lexically and chronologically.
func normalize(dates []string) []string {
	out := append([]string(nil), dates...)
	sort.Strings(out)
	n := 0
	for i, d := range out {
		if i > 0 && d == out[n-1] {
			continue
		}
		out[n] = d
		n++
	}
	return out[:n]
}
