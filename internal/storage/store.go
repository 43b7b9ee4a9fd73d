package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable wraps backend failures (I/O, connection, closed database).
	ErrUnavailable = errors.New("storage unavailable")
)

// Store defines the durable string key/value mapping the application persists into.
// This allows us to swap storage implementations (BadgerDB, Redis, SQLite, memory)
// without changing the cache and history logic that uses it.
// There are no transactions: each Set replaces the whole value.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close gracefully shuts down the store.
	Close() error
}
