package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)        // Send logs to stderr during tests
	l.SetLevel(logrus.ErrorLevel) // Only show errors by default
	return l
}

// setupTestDB creates a temporary BadgerDB instance for testing.
// It returns the store instance and a cleanup function.
func setupTestDB(t *testing.T, dir string) (*BadgerStore, func()) {
	t.Helper()

	store, err := NewBadgerStore(dir, testLogger())
	require.NoError(t, err, "Failed to create test BadgerDB store")

	cleanup := func() {
		err := store.Close()
		assert.NoError(t, err, "Failed to close test BadgerDB store")
	}
	return store, cleanup
}

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	// --- Missing key ---
	_, err := s.Get(ctx, "apod_cache")
	require.ErrorIs(t, err, ErrNotFound, "missing key should report ErrNotFound")

	// --- Set and Get ---
	require.NoError(t, s.Set(ctx, "apod_today_date", "2024-10-19"))
	v, err := s.Get(ctx, "apod_today_date")
	require.NoError(t, err)
	assert.Equal(t, "2024-10-19", v)

	// --- Overwrite replaces the whole value ---
	require.NoError(t, s.Set(ctx, "apod_today_date", "2024-10-20"))
	v, err = s.Get(ctx, "apod_today_date")
	require.NoError(t, err)
	assert.Equal(t, "2024-10-20", v)

	// --- Keys are independent ---
	require.NoError(t, s.Set(ctx, "apod_history", `[]`))
	v, err = s.Get(ctx, "apod_history")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	// --- Remove is idempotent ---
	require.NoError(t, s.Remove(ctx, "apod_today_date"))
	_, err = s.Get(ctx, "apod_today_date")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Remove(ctx, "apod_today_date"), "removing a missing key should not error")

	v, err = s.Get(ctx, "apod_history")
	require.NoError(t, err, "removing one key must not touch another")
	assert.Equal(t, `[]`, v)
}

func TestBadgerStore_Contract(t *testing.T) {
	store, cleanup := setupTestDB(t, t.TempDir())
	defer cleanup()

	runStoreContract(t, store)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, cleanup := setupTestDB(t, dir)
	require.NoError(t, store.Set(ctx, "apod_history", `[{"date":"2024-10-19"}]`))
	cleanup()

	reopened, cleanup := setupTestDB(t, dir)
	defer cleanup()
	v, err := reopened.Get(ctx, "apod_history")
	require.NoError(t, err)
	assert.Equal(t, `[{"date":"2024-10-19"}]`, v)
}

func TestBadgerStore_ClosedDatabaseIsUnavailable(t *testing.T) {
	store, _ := setupTestDB(t, t.TempDir())
	require.NoError(t, store.Close())

	_, err := store.Get(context.Background(), "apod_cache")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, store.Set(context.Background(), "apod_cache", "x"), ErrUnavailable)
}

func TestBadgerStore_RunGCStopsOnCancel(t *testing.T) {
	store, cleanup := setupTestDB(t, t.TempDir())
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunGC(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunGC did not return after cancellation")
	}
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "apod.db"), testLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close()) }()

	runStoreContract(t, store)
}

func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemoryStore()
	defer func() { assert.NoError(t, store.Close()) }()

	runStoreContract(t, store)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendBadger, BadgerPath: t.TempDir()}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "etcd"}, testLogger())
	assert.Error(t, err)
}
