package watermark

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natgas-forecast/internal/storage"
	"natgas-forecast/internal/storage/memory"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStore_UpdateAppendsToExistingList(t *testing.T) {
	objects := memory.NewObjectStore()
	ctx := context.Background()
	require.NoError(t, objects.Put(ctx, DefaultFolder, DefaultKey, []byte(`{"prices":["2021-01-01"]}`)))

	store := New(objects, Options{})
	require.NoError(t, store.Update(ctx, "prices", date("2021-01-05")))

	raw, err := objects.Get(ctx, DefaultFolder, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"prices":["2021-01-01","2021-01-05"]}`, string(raw))

	latest, err := store.GetLatest(ctx, "prices")
	require.NoError(t, err)
	assert.Equal(t, date("2021-01-05"), latest)
}

func TestStore_GetLatestNotFound(t *testing.T) {
	store := New(memory.NewObjectStore(), Options{})

	_, err := store.GetLatest(context.Background(), "prices")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_EmptyListIsNotFound(t *testing.T) {
	objects := memory.NewObjectStore()
	ctx := context.Background()
	require.NoError(t, objects.Put(ctx, DefaultFolder, DefaultKey, []byte(`{"prices":[]}`)))

	_, err := New(objects, Options{}).GetLatest(ctx, "prices")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_CorruptDocumentIsEmpty(t *testing.T) {
	objects := memory.NewObjectStore()
	ctx := context.Background()
	require.NoError(t, objects.Put(ctx, DefaultFolder, DefaultKey, []byte(`not json`)))

	store := New(objects, Options{})
	_, err := store.GetLatest(ctx, "prices")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Update(ctx, "prices", date("2022-06-01")))
	dates, err := store.Dates(ctx, "prices")
	require.NoError(t, err)
	assert.Equal(t, []string{"2022-06-01"}, dates)
}

func TestStore_ListsStaySortedAndUnique(t *testing.T) {
	store := New(memory.NewObjectStore(), Options{})
	ctx := context.Background()

	rng := rand.New(rand.NewSource(7))
	base := date("2020-01-01")
	for i := 0; i < 200; i++ {
		d := base.AddDate(0, 0, rng.Intn(60))
		require.NoError(t, store.Update(ctx, "daily_weather", d))

		dates, err := store.Dates(ctx, "daily_weather")
		require.NoError(t, err)
		assert.True(t, sort.StringsAreSorted(dates))
		for j := 1; j < len(dates); j++ {
			assert.NotEqual(t, dates[j-1], dates[j])
		}
	}
}

func TestStore_UpdateNeverRemoves(t *testing.T) {
	store := New(memory.NewObjectStore(), Options{})
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "rigs", date("2023-05-01")))
	require.NoError(t, store.Update(ctx, "rigs", date("2023-01-01")))
	require.NoError(t, store.Update(ctx, "other", date("2024-01-01")))

	dates, err := store.Dates(ctx, "rigs")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-01-01", "2023-05-01"}, dates)

	// An older date does not move the latest watermark back.
	latest, err := store.GetLatest(ctx, "rigs")
	require.NoError(t, err)
	assert.Equal(t, date("2023-05-01"), latest)

	assert.Len(t, store.All(ctx), 2)
}

type failingStore struct{ storage.ObjectStore }

func (failingStore) Get(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Put(context.Context, string, string, []byte) error {
	return errors.New("connection refused")
}

func TestStore_GetFailureTreatedAsEmpty(t *testing.T) {
	store := New(failingStore{}, Options{})
	ctx := context.Background()

	_, err := store.GetLatest(ctx, "prices")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Update(ctx, "prices", date("2021-01-01"))
	assert.ErrorContains(t, err, "write watermarks")
}
