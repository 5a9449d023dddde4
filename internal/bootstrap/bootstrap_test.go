package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"natgas-forecast/internal/config"
	"natgas-forecast/internal/datasets"
	"natgas-forecast/internal/storage/cache"
	"natgas-forecast/internal/storage/memory"
	"natgas-forecast/internal/watermark"
)

func TestOpen_MemoryDefaults(t *testing.T) {
	cfg := config.Default()

	s, err := Open(context.Background(), &cfg, true, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &memory.ObjectStore{}, s.Objects)
	assert.IsType(t, &watermark.Store{}, s.Watermarks)
	assert.IsType(t, &memory.CuratedStore{}, s.Curated)
}

func TestOpen_SQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "objects.db")
	cfg.Storage.Cache.LRUSize = 8

	s, err := Open(ctx, &cfg, false, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &cache.LRU{}, s.Objects)
	assert.Nil(t, s.Curated)

	day := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Watermarks.Update(ctx, datasets.DailyWeather, day))
	s.Close()

	s, err = Open(ctx, &cfg, false, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	latest, err := s.Watermarks.GetLatest(ctx, datasets.DailyWeather)
	require.NoError(t, err)
	assert.True(t, latest.Equal(day), "got %s", latest)
}

func TestOpen_WatermarksSkipObjectCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "objects.db")
	cfg.Storage.Cache.LRUSize = 8

	// Two long-lived processes over one database, each with its own LRU.
	a, err := Open(ctx, &cfg, false, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(ctx, &cfg, false, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()
	require.IsType(t, &cache.LRU{}, a.Objects)

	day := func(d int) time.Time { return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, a.Watermarks.Update(ctx, datasets.DailyWeather, day(1)))
	require.NoError(t, b.Watermarks.Update(ctx, datasets.DailyWeather, day(5)))
	require.NoError(t, a.Watermarks.Update(ctx, datasets.DailyWeather, day(9)))

	for _, s := range []*Stores{a, b} {
		dates, err := s.Watermarks.Dates(ctx, datasets.DailyWeather)
		require.NoError(t, err)
		assert.Equal(t, []string{"2021-01-01", "2021-01-05", "2021-01-09"}, dates)
	}
}

func TestClients(t *testing.T) {
	cfg := config.Default()
	c := Clients(&cfg, zap.NewNop())
	assert.NotNil(t, c.EIA)
	assert.NotNil(t, c.NOAA)
}
