package history

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apodwall/internal/domain"
	"apodwall/internal/storage"
	"apodwall/internal/storage/storagetest"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeClock advances one second per call so addedAt values are distinct.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)}
}

func record(day int) domain.Record {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day).Format(domain.DateLayout)
	return domain.Record{
		Date:      date,
		Title:     "Picture " + date,
		MediaType: domain.MediaImage,
		URL:       fmt.Sprintf("https://apod.nasa.gov/apod/image/%s.jpg", date),
	}
}

func dates(entries []domain.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Date
	}
	return out
}

func TestAdd_RecencyOrder(t *testing.T) {
	ctx := context.Background()
	h := New(storage.NewMemoryStore(), 50, quietLogger(), WithClock(newClock().now))

	var want []string
	for i := 0; i < 10; i++ {
		r := record(i)
		h.Add(ctx, r)
		want = append([]string{r.Date}, want...)
	}

	got := h.List(ctx)
	require.Len(t, got, 10)
	assert.Equal(t, want, dates(got))
}

func TestAdd_EvictsOldestBeyondCap(t *testing.T) {
	ctx := context.Background()
	h := New(storage.NewMemoryStore(), 0, quietLogger(), WithClock(newClock().now))
	require.Equal(t, domain.DefaultMaxHistory, h.Max())

	total := domain.DefaultMaxHistory + 7
	for i := 0; i < total; i++ {
		h.Add(ctx, record(i))
	}

	got := h.List(ctx)
	require.Len(t, got, domain.DefaultMaxHistory)
	assert.Equal(t, record(total-1).Date, got[0].Date, "most recent first")
	assert.Equal(t, record(total-domain.DefaultMaxHistory).Date, got[len(got)-1].Date, "oldest surviving entry last")
}

func TestAdd_DuplicateMovesToFront(t *testing.T) {
	ctx := context.Background()
	h := New(storage.NewMemoryStore(), 50, quietLogger(), WithClock(newClock().now))

	h.Add(ctx, record(1))
	h.Add(ctx, record(2))
	h.Add(ctx, record(3))
	before := h.List(ctx)
	require.Equal(t, []string{record(3).Date, record(2).Date, record(1).Date}, dates(before))

	h.Add(ctx, record(1))
	after := h.List(ctx)

	require.Len(t, after, 3, "re-adding must not grow the history")
	assert.Equal(t, []string{record(1).Date, record(3).Date, record(2).Date}, dates(after))
	assert.True(t, after[0].AddedAt.After(before[2].AddedAt), "addedAt should be refreshed")
}

func TestAdd_CapOfOne(t *testing.T) {
	ctx := context.Background()
	h := New(storage.NewMemoryStore(), 1, quietLogger())

	h.Add(ctx, record(1))
	h.Add(ctx, record(2))
	assert.Equal(t, []string{record(2).Date}, dates(h.List(ctx)))
}

func TestList_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := storage.NewBadgerStore(dir, quietLogger())
	require.NoError(t, err)
	addedAt := time.Date(2024, 10, 19, 7, 30, 0, 0, time.UTC)
	New(kv, 50, quietLogger(), WithClock(func() time.Time { return addedAt })).Add(ctx, record(5))
	require.NoError(t, kv.Close())

	// Fresh load from storage, as after an app restart.
	kv, err = storage.NewBadgerStore(dir, quietLogger())
	require.NoError(t, err)
	defer kv.Close()

	got := New(kv, 50, quietLogger()).List(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, record(5), got[0].Record)
	assert.True(t, addedAt.Equal(got[0].AddedAt), "addedAt must be preserved")
}

func TestList_CorruptDataIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, Key, `{"not":"a list"}`))

	h := New(kv, 50, quietLogger())
	assert.Empty(t, h.List(ctx))

	// A corrupt blob is replaced by the next add.
	h.Add(ctx, record(1))
	assert.Equal(t, []string{record(1).Date}, dates(h.List(ctx)))
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := storagetest.NewFlaky()
	h := New(kv, 50, quietLogger())

	kv.FailSets(true)
	assert.NotPanics(t, func() { h.Add(ctx, record(1)) })
	assert.Empty(t, h.List(ctx))

	kv.FailSets(false)
	h.Add(ctx, record(1))

	kv.FailGets(true)
	assert.Empty(t, h.List(ctx), "unreadable storage reads as empty")

	kv.FailGets(false)
	kv.FailRemoves(true)
	h.Clear(ctx)
	assert.Len(t, h.List(ctx), 1, "failed clear leaves data intact")
}

func TestGetAndClear(t *testing.T) {
	ctx := context.Background()
	h := New(storage.NewMemoryStore(), 50, quietLogger())
	h.Add(ctx, record(1))
	h.Add(ctx, record(2))

	e, ok := h.Get(ctx, record(1).Date)
	require.True(t, ok)
	assert.Equal(t, record(1).Title, e.Title)

	_, ok = h.Get(ctx, "1999-01-01")
	assert.False(t, ok)

	h.Clear(ctx)
	assert.Empty(t, h.List(ctx))
	h.Clear(ctx) // idempotent
	assert.Empty(t, h.List(ctx))
}

type sizeRecorder struct{ sizes []int }

func (r *sizeRecorder) HistorySize(n int) { r.sizes = append(r.sizes, n) }

func TestObserverSeesSizes(t *testing.T) {
	ctx := context.Background()
	rec := &sizeRecorder{}
	h := New(storage.NewMemoryStore(), 2, quietLogger(), WithObserver(rec))

	h.Add(ctx, record(1))
	h.Add(ctx, record(2))
	h.Add(ctx, record(3))
	h.Clear(ctx)
	assert.Equal(t, []int{1, 2, 2, 0}, rec.sizes)
}
