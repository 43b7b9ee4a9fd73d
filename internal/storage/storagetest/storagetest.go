// Package storagetest provides Store doubles for tests of packages built on storage.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"apodwall/internal/storage"
)

// FlakyStore wraps a Store and fails selected operations with storage.ErrUnavailable.
type FlakyStore struct {
	storage.Store

	mu         sync.Mutex
	failGet    bool
	failSet    bool
	failRemove bool
	sets       map[string]int
}

// NewFlaky wraps an in-memory store.
func NewFlaky() *FlakyStore {
	return &FlakyStore{Store: storage.NewMemoryStore(), sets: map[string]int{}}
}

// FailGets toggles failures of Get.
func (s *FlakyStore) FailGets(fail bool) { s.mu.Lock(); s.failGet = fail; s.mu.Unlock() }

// FailSets toggles failures of Set.
func (s *FlakyStore) FailSets(fail bool) { s.mu.Lock(); s.failSet = fail; s.mu.Unlock() }

// FailRemoves toggles failures of Remove.
func (s *FlakyStore) FailRemoves(fail bool) { s.mu.Lock(); s.failRemove = fail; s.mu.Unlock() }

// SetCount returns how many successful Set calls key has received.
func (s *FlakyStore) SetCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[key]
}

func (s *FlakyStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return "", fmt.Errorf("%w: injected get failure", storage.ErrUnavailable)
	}
	return s.Store.Get(ctx, key)
}

func (s *FlakyStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return fmt.Errorf("%w: injected set failure", storage.ErrUnavailable)
	}
	if err := s.Store.Set(ctx, key, value); err != nil {
		return err
	}
	s.sets[key]++
	return nil
}

func (s *FlakyStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failRemove
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: injected remove failure", storage.ErrUnavailable)
	}
	return s.Store.Remove(ctx, key)
}
