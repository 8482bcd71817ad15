// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"net/url"
	"time"
)

// Backend names reported by NewCacheWithInfo.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	RedisURL string
	// Prefix is the Redis key prefix.
	Prefix string
	// DefaultTTL is the default TTL for cache entries.
	DefaultTTL time.Duration
	// MaxSize is the maximum number of memory cache entries (0 = unlimited).
	MaxSize int
	// CleanupInterval is the memory cache expiry sweep interval.
	CleanupInterval time.Duration
	// FallbackToMemory keeps the process running on a memory cache when
	// Redis cannot be reached.
	FallbackToMemory bool
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:           "oloc:",
		DefaultTTL:       time.Hour,
		MaxSize:          10000,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}
}

// Info describes the backend NewCacheWithInfo selected.
type Info struct {
	Backend  string
	Fallback bool  // Redis was requested but unavailable
	Err      error // the Redis connection error when Fallback is set
}

// NewCacheWithInfo creates a cache and reports which backend is in use.
func NewCacheWithInfo(cfg Config) (Cacher, Info, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			return rc, Info{Backend: BackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return nil, Info{Backend: BackendRedis, Err: err}, err
		}
		slog.Warn("redis cache unavailable, using memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return newMemoryFromConfig(cfg), Info{Backend: BackendMemory, Fallback: true, Err: err}, nil
	}

	return newMemoryFromConfig(cfg), Info{Backend: BackendMemory}, nil
}

func newMemoryFromConfig(cfg Config) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
