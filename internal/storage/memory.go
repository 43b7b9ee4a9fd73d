package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local Store backed by go-cache with no expiration.
// Nothing survives a restart; it exists for tests and for STORE_BACKEND=memory.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

// Get returns the value stored under key, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return str, nil
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.c.Set(key, value, cache.NoExpiration)
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Close drops all stored values.
func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
