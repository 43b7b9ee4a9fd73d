// Package dailycache serves today's record, fetching it remotely at most once per UTC day.
package dailycache

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"apodwall/internal/apod"
	"apodwall/internal/domain"
	"apodwall/internal/storage"
)

// Store keys of the cache envelope.
const (
	RecordKey = "apod_cache"
	DateKey   = "apod_today_date"
)

// Lookup outcomes reported to the Observer.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
)

// HistoryAdder receives every freshly fetched record.
type HistoryAdder interface {
	Add(ctx context.Context, rec domain.Record)
}

// Observer is notified of lookup outcomes, e.g. for metrics.
type Observer interface {
	CacheLookup(result string)
}

// Cache implements the daily cache on top of a storage.Store and a Fetcher.
type Cache struct {
	kv       storage.Store
	fetcher  apod.Fetcher
	history  HistoryAdder
	now      func() time.Time
	observer Observer
	group    singleflight.Group
	log      logrus.FieldLogger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now when computing today's date.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver reports lookup outcomes.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New creates a daily cache. history may be nil.
func New(kv storage.Store, fetcher apod.Fetcher, history HistoryAdder, logger logrus.FieldLogger, opts ...Option) *Cache {
	c := &Cache{
		kv:      kv,
		fetcher: fetcher,
		history: history,
		now:     time.Now,
		log:     logger.WithField("component", "daily_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today returns the cache's notion of today (UTC).
func (c *Cache) Today() string {
	return domain.Today(c.now())
}

// GetToday returns today's record. It is served from the store when it was
// fetched earlier today; otherwise it is fetched, persisted and added to
// history. When the fetch fails, any previously cached record is returned
// instead, however old. Concurrent callers share one fetch per date; the
// shared fetch does not observe any single caller's cancellation, and each
// caller stops waiting when its own ctx is done.
func (c *Cache) GetToday(ctx context.Context) (domain.Record, error) {
	today := c.Today()

	ch := c.group.DoChan(today, func() (any, error) {
		return c.getToday(context.WithoutCancel(ctx), today)
	})
	select {
	case <-ctx.Done():
		return domain.Record{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.log.WithField("date", today).Debug("Joined in-flight lookup")
		}
		if res.Err != nil {
			return domain.Record{}, res.Err
		}
		return res.Val.(domain.Record), nil
	}
}

func (c *Cache) getToday(ctx context.Context, today string) (domain.Record, error) {
	log := c.log.WithField("date", today)

	if cachedDate, ok := c.read(ctx, DateKey); ok && cachedDate == today {
		if rec, ok := c.cachedRecord(ctx); ok {
			c.observe(ResultHit)
			log.Debug("Serving today's record from cache")
			return rec, nil
		}
	}

	// The source's own today. Its date may lag the UTC date by a day; the
	// envelope is still keyed by the UTC date of the fetch.
	rec, fetchErr := c.fetcher.Fetch(ctx, "")
	if fetchErr == nil {
		c.observe(ResultMiss)
		c.persist(ctx, today, rec)
		if c.history != nil {
			c.history.Add(ctx, rec)
		}
		log.WithField("title", rec.Title).Info("Fetched and cached today's record")
		return rec, nil
	}

	log.WithError(fetchErr).Warn("Fetching today's record failed, trying cache")
	if rec, ok := c.cachedRecord(ctx); ok {
		c.observe(ResultStale)
		log.WithField("cached_date", rec.Date).Info("Serving stale cached record")
		return rec, nil
	}
	return domain.Record{}, fetchErr
}

// GetForDate fetches the record for a specific date. Nothing is cached and
// failures are returned as is.
func (c *Cache) GetForDate(ctx context.Context, date string) (domain.Record, error) {
	rec, err := c.fetcher.Fetch(ctx, date)
	if err != nil {
		c.log.WithError(err).WithField("date", date).Error("Failed to fetch record for date")
		return domain.Record{}, err
	}
	return rec, nil
}

// Clear removes the cache envelope. Errors are logged and swallowed.
func (c *Cache) Clear(ctx context.Context) {
	for _, key := range []string{RecordKey, DateKey} {
		if err := c.kv.Remove(ctx, key); err != nil {
			c.log.WithError(err).WithField("key", key).Error("Failed to clear cache key")
		}
	}
	c.log.Info("Daily cache cleared")
}

// persist writes the record before the date so that a failure between the
// two writes leaves an old date behind and the next call refetches.
func (c *Cache) persist(ctx context.Context, today string, rec domain.Record) {
	encoded, err := domain.EncodeRecord(rec)
	if err != nil {
		c.log.WithError(err).Error("Failed to encode record for cache")
		return
	}
	if err := c.kv.Set(ctx, RecordKey, encoded); err != nil {
		c.log.WithError(err).Error("Failed to cache record")
		return
	}
	if err := c.kv.Set(ctx, DateKey, today); err != nil {
		c.log.WithError(err).Error("Failed to cache record date")
	}
}

func (c *Cache) cachedRecord(ctx context.Context) (domain.Record, bool) {
	raw, ok := c.read(ctx, RecordKey)
	if !ok {
		return domain.Record{}, false
	}
	rec, err := domain.DecodeRecord(raw)
	if err != nil {
		c.log.WithError(err).Warn("Cached record is malformed, ignoring it")
		return domain.Record{}, false
	}
	return rec, true
}

func (c *Cache) read(ctx context.Context, key string) (string, bool) {
	v, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.WithError(err).WithField("key", key).Warn("Failed to read cache key")
		}
		return "", false
	}
	return v, true
}

func (c *Cache) observe(result string) {
	if c.observer != nil {
		c.observer.CacheLookup(result)
	}
}
