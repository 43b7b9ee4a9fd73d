package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Supported STORE_BACKEND values.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend    string
	BadgerPath string
	RedisURL   string
	SQLitePath string
}

// Open constructs the Store named by opts.Backend.
func Open(ctx context.Context, opts Options, logger logrus.FieldLogger) (Store, error) {
	switch opts.Backend {
	case BackendBadger, "":
		return NewBadgerStore(opts.BadgerPath, logger)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL, logger)
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath, logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
