// Package app wires the store, fetcher, daily cache, history, notifications
// and wallpaper service into one application context.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"apodwall/internal/apod"
	"apodwall/internal/config"
	"apodwall/internal/dailycache"
	"apodwall/internal/domain"
	"apodwall/internal/history"
	"apodwall/internal/metrics"
	"apodwall/internal/notify"
	"apodwall/internal/storage"
	"apodwall/internal/wallpaper"
)

const gcInterval = 10 * time.Minute

// ErrNoNotifier is returned by notification commands when no service is configured.
var ErrNoNotifier = errors.New("no notification service configured")

// App owns every component of a session. Create it with New and release it with Close.
type App struct {
	cfg       config.Config
	store     storage.Store
	fetcher   apod.Fetcher
	cache     *dailycache.Cache
	history   *history.Store
	notifier  notify.Notifier
	guard     *notify.Guard
	wallpaper *wallpaper.Service
	metrics   *metrics.Metrics
	log       logrus.FieldLogger

	closeOnce sync.Once
}

// Option overrides a component built by New.
type Option func(*options)

type options struct {
	store    storage.Store
	fetcher  apod.Fetcher
	notifier notify.Notifier
	setter   wallpaper.Setter
	now      func() time.Time
}

// WithStore uses kv instead of the configured backend. The App takes ownership of it.
func WithStore(kv storage.Store) Option { return func(o *options) { o.store = kv } }

// WithFetcher uses f instead of the configured record source.
func WithFetcher(f apod.Fetcher) Option { return func(o *options) { o.fetcher = f } }

// WithNotifier uses n instead of the configured notification service.
func WithNotifier(n notify.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithSetter uses s instead of the configured wallpaper commands.
func WithSetter(s wallpaper.Setter) Option { return func(o *options) { o.setter = s } }

// WithClock overrides time.Now for the daily cache and history.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New builds the application context from cfg.
func New(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.WithField("component", "app")

	m, err := metrics.New()
	if err != nil {
		return nil, err
	}

	// --- Storage ---
	store := o.store
	if store == nil {
		store, err = storage.Open(ctx, storage.Options{
			Backend:    cfg.StoreBackend,
			BadgerPath: cfg.BadgerDBPath,
			RedisURL:   cfg.RedisURL,
			SQLitePath: cfg.SQLitePath,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}

	// --- Record source ---
	fetcher := o.fetcher
	source := "custom"
	if fetcher == nil {
		fetcher, source, err = newFetcher(cfg, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	fetcher = m.InstrumentFetcher(fetcher, source)

	// --- Notifications ---
	notifier := o.notifier
	if notifier == nil {
		notifier = notify.Nop{}
		if len(cfg.NotifyURLs) > 0 {
			sn, err := notify.NewShoutrrrNotifier(cfg.NotifyURLs, cfg.FetchTimeout, logger)
			if err != nil {
				_ = store.Close()
				return nil, err
			}
			notifier = sn
		}
	}

	// --- Wallpaper ---
	setter := o.setter
	if setter == nil {
		chain, err := wallpaper.BuildSetter(cfg.WallpaperCommand, cfg.WallpaperFallbackCommand)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		setter = chain
	}

	hist := history.New(store, cfg.MaxHistory, logger, history.WithClock(o.now), history.WithObserver(m))
	a := &App{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		cache:    dailycache.New(store, fetcher, hist, logger, dailycache.WithClock(o.now), dailycache.WithObserver(m)),
		history:  hist,
		notifier: notifier,
		guard:    notify.NewGuard(store, notifier, m, logger),
		wallpaper: wallpaper.NewService(wallpaper.Options{
			Dir:      cfg.WallpaperDir,
			PreferHD: cfg.WallpaperPreferHD,
		}, setter, logger),
		metrics: m,
		log:     log,
	}

	log.WithFields(logrus.Fields{
		"store_backend": cfg.StoreBackend,
		"source":        source,
		"max_history":   hist.Max(),
	}).Info("Application initialized")
	return a, nil
}

func newFetcher(cfg config.Config, logger logrus.FieldLogger) (apod.Fetcher, string, error) {
	switch cfg.APODSource {
	case config.SourcePage:
		f, err := apod.NewPageFetcher(cfg.APODPageURL, cfg.FetchTimeout, logger)
		if err != nil {
			return nil, "", err
		}
		return f, config.SourcePage, nil
	default:
		return apod.NewClient(apod.ClientConfig{
			BaseURL:       cfg.APODBaseURL,
			APIKey:        cfg.NASAAPIKey,
			Timeout:       cfg.FetchTimeout,
			RatePerMinute: cfg.RateLimitPerMinute,
		}, logger), config.SourceAPI, nil
	}
}

// Close cancels pending notifications and closes the store.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if cerr := a.notifier.CancelAll(context.Background()); cerr != nil {
			a.log.WithError(cerr).Warn("Failed to cancel pending notifications")
		}
		err = a.store.Close()
	})
	return err
}

// Metrics returns the application's metrics.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Today returns today's record through the daily cache.
func (a *App) Today(ctx context.Context) (domain.Record, error) {
	return a.cache.GetToday(ctx)
}

// Show fetches the record for date and adds it to history.
func (a *App) Show(ctx context.Context, date string) (domain.Record, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.Record{}, err
	}
	rec, err := a.cache.GetForDate(ctx, date)
	if err != nil {
		return domain.Record{}, err
	}
	a.history.Add(ctx, rec)
	return rec, nil
}

// History returns the viewing history, most recent first.
func (a *App) History(ctx context.Context) []domain.HistoryEntry {
	return a.history.List(ctx)
}

// HistoryEntry returns the stored entry for date, if any.
func (a *App) HistoryEntry(ctx context.Context, date string) (domain.HistoryEntry, bool) {
	return a.history.Get(ctx, date)
}

// ClearHistory removes all history entries.
func (a *App) ClearHistory(ctx context.Context) { a.history.Clear(ctx) }

// ClearCache forgets today's cached record so the next lookup fetches.
func (a *App) ClearCache(ctx context.Context) { a.cache.Clear(ctx) }
