package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natgas-forecast/internal/storage"
)

func TestWatermarkStore_UpdateAndGetLatest(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewWatermarkStore(pool)

	require.NoError(t, store.Update(ctx, "prices", time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, store.Update(ctx, "prices", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))

	latest, err := store.GetLatest(ctx, "prices")
	require.NoError(t, err)
	assert.Equal(t, "2021-01-05", latest.Format(time.DateOnly))

	dates, err := store.Dates(ctx, "prices")
	require.NoError(t, err)
	assert.Equal(t, []string{"2021-01-01", "2021-01-05"}, dates)
}

func TestWatermarkStore_UpdateIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewWatermarkStore(pool)

	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Update(ctx, "daily_weather", d))
	require.NoError(t, store.Update(ctx, "daily_weather", d))

	dates, err := store.Dates(ctx, "daily_weather")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01"}, dates)
}

func TestWatermarkStore_NotFound(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewWatermarkStore(pool)

	_, err := store.GetLatest(ctx, "never_extracted")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Dates(ctx, "never_extracted")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWatermarkStore_DatasetsAreIndependent(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewWatermarkStore(pool)

	require.NoError(t, store.Update(ctx, "a", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, store.Update(ctx, "b", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)))

	latest, err := store.GetLatest(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2020, latest.Year())
}

func TestPool_InTxRollsBackOnError(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	errAbort := errors.New("abort")

	err := pool.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO watermarks (dataset_key, watermark_date) VALUES ('prices', '2024-01-02')`)
		require.NoError(t, err)
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	_, err = NewWatermarkStore(pool).Dates(ctx, "prices")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
