package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natgas-forecast/internal/storage"
	"natgas-forecast/internal/storage/memory"
)

// countingStore counts Get calls that reach the backing store.
type countingStore struct {
	*memory.ObjectStore
	gets   int
	putErr error
}

func (c *countingStore) Get(ctx context.Context, folder, key string) ([]byte, error) {
	c.gets++
	return c.ObjectStore.Get(ctx, folder, key)
}

func (c *countingStore) Put(ctx context.Context, folder, key string, data []byte) error {
	if c.putErr != nil {
		return c.putErr
	}
	return c.ObjectStore.Put(ctx, folder, key, data)
}

func TestLRU_ReadThrough(t *testing.T) {
	backing := &countingStore{ObjectStore: memory.NewObjectStore()}
	ctx := context.Background()
	require.NoError(t, backing.ObjectStore.Put(ctx, "raw", "k", []byte("v")))

	c, err := NewLRU(backing, 8)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, "raw", "k")
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))
	}
	assert.Equal(t, 1, backing.gets)
}

func TestLRU_PutWritesThrough(t *testing.T) {
	backing := &countingStore{ObjectStore: memory.NewObjectStore()}
	ctx := context.Background()

	c, err := NewLRU(backing, 8)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "metadata", "metadata", []byte("one")))
	require.NoError(t, c.Put(ctx, "metadata", "metadata", []byte("two")))

	got, err := c.Get(ctx, "metadata", "metadata")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
	assert.Equal(t, 0, backing.gets)

	stored, err := backing.ObjectStore.Get(ctx, "metadata", "metadata")
	require.NoError(t, err)
	assert.Equal(t, "two", string(stored))
}

func TestLRU_FailedPutInvalidates(t *testing.T) {
	backing := &countingStore{ObjectStore: memory.NewObjectStore()}
	ctx := context.Background()

	c, err := NewLRU(backing, 8)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "raw", "k", []byte("old")))

	backing.putErr = errors.New("disk full")
	assert.Error(t, c.Put(ctx, "raw", "k", []byte("new")))
	assert.Equal(t, 0, c.Len())

	got, err := c.Get(ctx, "raw", "k")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestLRU_MissPropagatesNotFound(t *testing.T) {
	c, err := NewLRU(memory.NewObjectStore(), 8)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "raw", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Evicts(t *testing.T) {
	c, err := NewLRU(memory.NewObjectStore(), 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(ctx, "raw", k, []byte(k)))
	}
	assert.Equal(t, 2, c.Len())
}
