package memory

import (
	"context"
	"sync"

	"natgas-forecast/internal/storage"
)

// ObjectStore is an in-memory implementation of storage.ObjectStore.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte // keyed by folder/key
}

// NewObjectStore creates a new in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[string][]byte),
	}
}

// Get returns a copy of the object stored at folder/key.
func (s *ObjectStore) Get(_ context.Context, folder, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[storage.ObjectPath(folder, key)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put overwrites the object at folder/key.
func (s *ObjectStore) Put(_ context.Context, folder, key string, data []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[storage.ObjectPath(folder, key)] = stored
	return nil
}

// Len returns the number of stored objects.
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ storage.ObjectStore = (*ObjectStore)(nil)
