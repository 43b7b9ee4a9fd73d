package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	// --- Record source ---
	NASAAPIKey         string        `mapstructure:"NASA_API_KEY"`
	APODBaseURL        string        `mapstructure:"APOD_BASE_URL"`
	APODPageURL        string        `mapstructure:"APOD_PAGE_URL"`
	APODSource         string        `mapstructure:"APOD_SOURCE"` // api | page
	FetchTimeout       time.Duration `mapstructure:"FETCH_TIMEOUT"`
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	// --- Storage ---
	StoreBackend string `mapstructure:"STORE_BACKEND"` // badger | redis | sqlite | memory
	BadgerDBPath string `mapstructure:"BADGERDB_PATH"`
	RedisURL     string `mapstructure:"REDIS_URL"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	MaxHistory   int    `mapstructure:"MAX_HISTORY"`

	// --- Wallpaper ---
	WallpaperDir             string `mapstructure:"WALLPAPER_DIR"`
	WallpaperCommand         string `mapstructure:"WALLPAPER_COMMAND"`
	WallpaperFallbackCommand string `mapstructure:"WALLPAPER_FALLBACK_COMMAND"`
	WallpaperPreferHD        bool   `mapstructure:"WALLPAPER_PREFER_HD"`

	// --- Notifications / daemon ---
	NotifyURLs    []string      `mapstructure:"NOTIFY_URLS"`
	CheckInterval time.Duration `mapstructure:"CHECK_INTERVAL"`
	MetricsAddr   string        `mapstructure:"METRICS_ADDR"`

	// --- Telegram front end ---
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	// --- Logging ---
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"` // json | text
}

// Source names for APOD_SOURCE.
const (
	SourceAPI  = "api"
	SourcePage = "page"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("NASA_API_KEY", "DEMO_KEY")
	v.SetDefault("APOD_BASE_URL", "https://api.nasa.gov/planetary/apod")
	v.SetDefault("APOD_PAGE_URL", "https://apod.nasa.gov/apod/")
	v.SetDefault("APOD_SOURCE", SourceAPI)
	v.SetDefault("FETCH_TIMEOUT", 15*time.Second)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)

	v.SetDefault("STORE_BACKEND", "badger")
	v.SetDefault("BADGERDB_PATH", "./apod_data")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SQLITE_PATH", "./apod_data/apod.db")
	v.SetDefault("MAX_HISTORY", 50)

	v.SetDefault("WALLPAPER_DIR", "./wallpapers")
	v.SetDefault("WALLPAPER_COMMAND", "")
	v.SetDefault("WALLPAPER_FALLBACK_COMMAND", "")
	v.SetDefault("WALLPAPER_PREFER_HD", false)

	v.SetDefault("NOTIFY_URLS", []string{})
	v.SetDefault("CHECK_INTERVAL", time.Hour)
	v.SetDefault("METRICS_ADDR", "")

	v.SetDefault("TELEGRAM_BOT_TOKEN", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; environment variables and defaults still apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.NotifyURLs = splitList(config.NotifyURLs)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.APODSource {
	case SourceAPI, SourcePage:
	default:
		return fmt.Errorf("APOD_SOURCE must be %q or %q, got %q", SourceAPI, SourcePage, c.APODSource)
	}
	switch c.StoreBackend {
	case "badger", "redis", "sqlite", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND %q is not supported", c.StoreBackend)
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("MAX_HISTORY must be positive, got %d", c.MaxHistory)
	}
	if c.CheckInterval < time.Minute {
		return fmt.Errorf("CHECK_INTERVAL must be at least 1m, got %s", c.CheckInterval)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// splitList accepts both YAML lists and comma/space separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}
