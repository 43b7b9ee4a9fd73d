// Package history keeps the bounded, most-recent-first list of viewed records.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"apodwall/internal/domain"
	"apodwall/internal/storage"
)

// Key is the store key holding the serialized history.
const Key = "apod_history"

// Observer receives the history length after each successful write.
type Observer interface {
	HistorySize(n int)
}

// Store maintains the history list inside a storage.Store.
// It keeps no state between calls; the backing store owns the data.
type Store struct {
	kv       storage.Store
	max      int
	now      func() time.Time
	observer Observer
	log      logrus.FieldLogger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for addedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithObserver reports history sizes, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// New creates a history store capped at max entries (domain.DefaultMaxHistory when max <= 0).
func New(kv storage.Store, max int, logger logrus.FieldLogger, opts ...Option) *Store {
	if max <= 0 {
		max = domain.DefaultMaxHistory
	}
	s := &Store{
		kv:  kv,
		max: max,
		now: time.Now,
		log: logger.WithField("component", "history"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Max returns the history cap.
func (s *Store) Max() int { return s.max }

// Add moves rec to the front of the history, replacing any entry with the
// same date and dropping entries beyond the cap.
// Errors are logged, never returned: history must not block showing a picture.
func (s *Store) Add(ctx context.Context, rec domain.Record) {
	log := s.log.WithField("date", rec.Date)

	current := s.List(ctx)
	next := make([]domain.HistoryEntry, 0, min(len(current)+1, s.max))
	next = append(next, domain.HistoryEntry{Record: rec, AddedAt: s.now().UTC()})
	for _, e := range current {
		if len(next) == s.max {
			break
		}
		if e.Date == rec.Date {
			continue
		}
		next = append(next, e)
	}

	encoded, err := domain.EncodeHistory(next)
	if err != nil {
		log.WithError(err).Error("Failed to encode history")
		return
	}
	if err := s.kv.Set(ctx, Key, encoded); err != nil {
		log.WithError(err).Error("Failed to save history")
		return
	}
	if s.observer != nil {
		s.observer.HistorySize(len(next))
	}
	log.WithField("history_size", len(next)).Debug("Record added to history")
}

// List returns the stored history, most recent first.
// Missing, unreadable or corrupt data yields an empty list.
func (s *Store) List(ctx context.Context) []domain.HistoryEntry {
	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.WithError(err).Warn("Failed to read history, treating as empty")
		}
		return []domain.HistoryEntry{}
	}
	entries, err := domain.DecodeHistory(raw)
	if err != nil {
		s.log.WithError(err).Warn("Stored history is malformed, treating as empty")
		return []domain.HistoryEntry{}
	}
	return entries
}

// Get returns the entry for date, if present.
func (s *Store) Get(ctx context.Context, date string) (domain.HistoryEntry, bool) {
	for _, e := range s.List(ctx) {
		if e.Date == date {
			return e, true
		}
	}
	return domain.HistoryEntry{}, false
}

// Clear removes the stored history. Errors are logged and swallowed.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Remove(ctx, Key); err != nil {
		s.log.WithError(err).Error("Failed to clear history")
		return
	}
	if s.observer != nil {
		s.observer.HistorySize(0)
	}
	s.log.Info("History cleared")
}
