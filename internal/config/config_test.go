package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "DEMO_KEY", cfg.NASAAPIKey)
	assert.Equal(t, SourceAPI, cfg.APODSource)
	assert.Equal(t, "badger", cfg.StoreBackend)
	assert.Equal(t, "./apod_data", cfg.BadgerDBPath)
	assert.Equal(t, 50, cfg.MaxHistory)
	assert.Equal(t, time.Hour, cfg.CheckInterval)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Empty(t, cfg.NotifyURLs)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := `
NASA_API_KEY: file-key
STORE_BACKEND: sqlite
MAX_HISTORY: 10
CHECK_INTERVAL: 30m
NOTIFY_URLS:
  - "generic://example.com/hook"
  - "ntfy://ntfy.sh/apod"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.NASAAPIKey)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, 10, cfg.MaxHistory)
	assert.Equal(t, 30*time.Minute, cfg.CheckInterval)
	assert.Equal(t, []string{"generic://example.com/hook", "ntfy://ntfy.sh/apod"}, cfg.NotifyURLs)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("NASA_API_KEY: file-key\n"), 0o600))

	t.Setenv("NASA_API_KEY", "env-key")
	t.Setenv("NOTIFY_URLS", "ntfy://ntfy.sh/a,ntfy://ntfy.sh/b")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.NASAAPIKey)
	assert.Equal(t, []string{"ntfy://ntfy.sh/a", "ntfy://ntfy.sh/b"}, cfg.NotifyURLs)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown source", "APOD_SOURCE", "rss"},
		{"unknown backend", "STORE_BACKEND", "etcd"},
		{"zero history", "MAX_HISTORY", "0"},
		{"tiny interval", "CHECK_INTERVAL", "5s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig(t.TempDir())
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("NASA_API_KEY: [unclosed\n"), 0o600))

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "error reading config file")
}
