// Package metrics provides Prometheus metrics for fetches, cache lookups,
// history size, notifications and wallpaper changes.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"apodwall/internal/apod"
	"apodwall/internal/domain"
)

// Metrics contains all Prometheus collectors of the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchesTotal       *prometheus.CounterVec   // Remote fetches by source and status
	FetchDuration      *prometheus.HistogramVec // Fetch latency by source
	CacheLookupsTotal  *prometheus.CounterVec   // Daily cache lookups by result (hit, miss, stale)
	HistoryEntries     prometheus.Gauge         // Entries currently in history
	NotificationsTotal *prometheus.CounterVec   // Notifications by status
	WallpapersTotal    *prometheus.CounterVec   // Wallpaper changes by status

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apod_fetches_total",
			Help: "Total number of remote APOD fetches by source and status",
		},
		[]string{"source", "status"}, // status: success, error
	)
	m.FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apod_fetch_duration_seconds",
			Help:    "Time taken by remote APOD fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)
	m.CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apod_daily_cache_lookups_total",
			Help: "Daily cache lookups by result (hit, miss, stale)",
		},
		[]string{"result"},
	)
	m.HistoryEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "apod_history_entries",
		Help: "Number of entries in the viewing history",
	})
	m.NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apod_notifications_total",
			Help: "New-picture notifications by status (sent, skipped, error)",
		},
		[]string{"status"},
	)
	m.WallpapersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apod_wallpaper_changes_total",
			Help: "Wallpaper change attempts by status",
		},
		[]string{"status"},
	)

	for _, c := range []prometheus.Collector{
		m.FetchesTotal, m.FetchDuration, m.CacheLookupsTotal,
		m.HistoryEntries, m.NotificationsTotal, m.WallpapersTotal,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// CacheLookup implements dailycache.Observer.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// HistorySize implements history.Observer.
func (m *Metrics) HistorySize(n int) {
	if m == nil {
		return
	}
	m.HistoryEntries.Set(float64(n))
}

// Notification records a notification outcome.
func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

// Wallpaper records a wallpaper change outcome.
func (m *Metrics) Wallpaper(err error) {
	if m == nil {
		return
	}
	m.WallpapersTotal.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// instrumentedFetcher records count and latency of every fetch.
type instrumentedFetcher struct {
	next   apod.Fetcher
	source string
	m      *Metrics
}

// InstrumentFetcher wraps f so that its calls are counted under source.
func (m *Metrics) InstrumentFetcher(f apod.Fetcher, source string) apod.Fetcher {
	if m == nil {
		return f
	}
	return &instrumentedFetcher{next: f, source: source, m: m}
}

func (f *instrumentedFetcher) Fetch(ctx context.Context, date string) (domain.Record, error) {
	start := time.Now()
	rec, err := f.next.Fetch(ctx, date)
	f.m.FetchDuration.WithLabelValues(f.source).Observe(time.Since(start).Seconds())
	f.m.FetchesTotal.WithLabelValues(f.source, status(err)).Inc()
	return rec, err
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logrus.FieldLogger) error {
	log := logger.WithFields(logrus.Fields{"component": "metrics", "addr": addr})

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Metrics server shutdown failed")
		}
	}()

	log.Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
