// Package cache provides read-through decorators over storage.ObjectStore.
// Put writes through to the backing store before updating the cache, so a
// cache never holds an object the backing store rejected.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"natgas-forecast/internal/observability"
	"natgas-forecast/internal/storage"
)

// LRU caches recently read objects in process memory.
type LRU struct {
	next  storage.ObjectStore
	cache *lru.Cache[string, []byte]
}

var _ storage.ObjectStore = (*LRU)(nil)

// NewLRU wraps next with an in-process cache of up to size objects.
func NewLRU(next storage.ObjectStore, size int) (*LRU, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRU{next: next, cache: c}, nil
}

// Get serves folder/key from the cache, falling back to the backing store.
func (c *LRU) Get(ctx context.Context, folder, key string) ([]byte, error) {
	path := storage.ObjectPath(folder, key)
	if data, ok := c.cache.Get(path); ok {
		observability.RecordCacheLookup("lru", true)
		return clone(data), nil
	}
	observability.RecordCacheLookup("lru", false)

	data, err := c.next.Get(ctx, folder, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, clone(data))
	return data, nil
}

// Put writes through and refreshes the cached copy.
func (c *LRU) Put(ctx context.Context, folder, key string, data []byte) error {
	if err := c.next.Put(ctx, folder, key, data); err != nil {
		c.cache.Remove(storage.ObjectPath(folder, key))
		return err
	}
	c.cache.Add(storage.ObjectPath(folder, key), clone(data))
	return nil
}

// Len returns the number of cached objects.
func (c *LRU) Len() int {
	return c.cache.Len()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
