package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apodwall/internal/apod"
	"apodwall/internal/domain"
)

func TestInstrumentFetcher(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	calls := 0
	f := m.InstrumentFetcher(apod.FetcherFunc(func(ctx context.Context, date string) (domain.Record, error) {
		calls++
		if date == "bad" {
			return domain.Record{}, &apod.FetchError{Date: date, Err: errors.New("boom")}
		}
		return domain.Record{Date: date}, nil
	}), "api")

	_, err = f.Fetch(context.Background(), "2024-10-19")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "bad")
	require.ErrorIs(t, err, apod.ErrFetchFailed, "errors pass through unchanged")

	assert.Equal(t, 2, calls)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchesTotal.WithLabelValues("api", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchesTotal.WithLabelValues("api", "error")), 0)
}

func TestObserversAndCounters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.CacheLookup("hit")
	m.CacheLookup("hit")
	m.CacheLookup("stale")
	m.HistorySize(7)
	m.Notification("sent")
	m.Wallpaper(nil)
	m.Wallpaper(errors.New("no setter"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("stale")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.HistoryEntries), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("sent")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WallpapersTotal.WithLabelValues("error")), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("hit")
		m.HistorySize(1)
		m.Notification("sent")
		m.Wallpaper(nil)
	})

	inner := apod.FetcherFunc(func(ctx context.Context, date string) (domain.Record, error) {
		return domain.Record{}, nil
	})
	_, err := m.InstrumentFetcher(inner, "api").Fetch(context.Background(), "")
	assert.NoError(t, err)
}

func TestHandler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.CacheLookup("miss")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apod_daily_cache_lookups_total{result="miss"} 1`)
}
