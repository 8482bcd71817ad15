// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads oLoc settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"OLOC_DB_PATH" envDefault:"./data/oloc.db"`
	DBDriver   string `env:"OLOC_DB_DRIVER" envDefault:"sqlite"`
	ServerHost string `env:"OLOC_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OLOC_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"OLOC_ENV" envDefault:"development"`
	LogLevel   string `env:"OLOC_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"OLOC_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OLOC_CACHE_PREFIX" envDefault:"oloc:"`   // Redis key prefix
	CacheTTL     int    `env:"OLOC_CACHE_TTL" envDefault:"3600"`       // Default cache TTL in seconds
	CacheMaxSize int    `env:"OLOC_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Consensus
	AcceptThreshold       int  `env:"OLOC_ACCEPT_THRESHOLD" envDefault:"1"`
	ViolationThreshold    int  `env:"OLOC_VIOLATION_THRESHOLD" envDefault:"-10"`
	EnforceUnique         bool `env:"OLOC_ENFORCE_UNIQUE" envDefault:"false"`
	SyncIncludeTranslator bool `env:"OLOC_SYNC_INCLUDE_TRANSLATOR" envDefault:"false"`

	// Webhooks
	WebhookURLs    []string `env:"OLOC_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret  string   `env:"OLOC_WEBHOOK_SECRET"`
	WebhookWorkers int      `env:"OLOC_WEBHOOK_WORKERS" envDefault:"3"`
	WebhookRate    float64  `env:"OLOC_WEBHOOK_RATE" envDefault:"10"`

	// Maintenance
	EventRetentionDays int    `env:"OLOC_EVENT_RETENTION_DAYS" envDefault:"90"`
	PruneSchedule      string `env:"OLOC_PRUNE_SCHEDULE" envDefault:"@daily"` // Cron spec for event log pruning

	// Seeding configuration
	SeedFile string `env:"OLOC_SEED_FILE"` // Optional TOML seed file
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// WebhooksEnabled reports whether any notification endpoint is configured.
func (c Config) WebhooksEnabled() bool {
	return len(c.WebhookURLs) > 0
}

// CacheTTLDuration returns the cache TTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// EventRetention returns how long event log entries are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// LoadDotEnv reads .env style files into the environment. Missing files
// are ignored and variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the environment parser cannot.
func (c *Config) Validate() error {
	var errs []error

	if c.AcceptThreshold < 0 {
		errs = append(errs, fmt.Errorf("OLOC_ACCEPT_THRESHOLD must be >= 0, got %d", c.AcceptThreshold))
	}
	if c.ViolationThreshold >= 0 {
		errs = append(errs, fmt.Errorf("OLOC_VIOLATION_THRESHOLD must be negative, got %d", c.ViolationThreshold))
	}
	switch c.DBDriver {
	case DriverSQLite, DriverSQLite3:
	default:
		errs = append(errs, fmt.Errorf("OLOC_DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverSQLite3, c.DBDriver))
	}
	if c.WebhookWorkers < 1 {
		errs = append(errs, fmt.Errorf("OLOC_WEBHOOK_WORKERS must be >= 1, got %d", c.WebhookWorkers))
	}
	if c.WebhookRate <= 0 {
		errs = append(errs, fmt.Errorf("OLOC_WEBHOOK_RATE must be positive, got %g", c.WebhookRate))
	}

	if c.EventRetentionDays < 1 {
		errs = append(errs, fmt.Errorf("OLOC_EVENT_RETENTION_DAYS must be >= 1, got %d", c.EventRetentionDays))
	}

	urls := c.WebhookURLs[:0]
	for _, raw := range c.WebhookURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("OLOC_WEBHOOK_URLS: %q is not an absolute http(s) URL", raw))
			continue
		}
		urls = append(urls, raw)
	}
	c.WebhookURLs = urls

	return errors.Join(errs...)
}
