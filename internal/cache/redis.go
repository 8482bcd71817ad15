// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 5 * time.Second
	redisScanBatch   = 200
)

// RedisCache is the Cacher used when several oLoc instances share key lock
// and language state. Every key lives under prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	closed atomic.Bool

	hits, misses, sets atomic.Int64
}

// NewRedisCacheFromURL connects to the server at rawURL and checks it with
// PING. An empty prefix or a non-positive TTL keeps the defaults.
func NewRedisCacheFromURL(rawURL, prefix string, defaultTTL time.Duration) (*RedisCache, error) {
	if rawURL == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.DialTimeout = redisDialTimeout

	if prefix == "" {
		prefix = "oloc:"
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix, ttl: defaultTTL}, nil
}

func (c *RedisCache) open() error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return nil
}

// Get returns the value stored under key, or ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return nil, ErrCacheMiss
	case err != nil:
		return nil, err
	}
	c.hits.Add(1)
	return val, nil
}

// Set stores value under key. A non-positive ttl uses the cache default.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.open(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return err
	}
	c.sets.Add(1)
	return nil
}

// Delete removes key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.open(); err != nil {
		return err
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Has reports whether key is present.
func (c *RedisCache) Has(ctx context.Context, key string) (bool, error) {
	if err := c.open(); err != nil {
		return false, err
	}
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	return n > 0, err
}

// Clear removes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.DeleteByPrefix(ctx, "")
}

// DeleteByPrefix removes the keys starting with prefix, e.g. every key
// lock of a language.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := c.open(); err != nil {
		return err
	}
	return c.scan(ctx, prefix, func(keys []string) error {
		return c.client.Del(ctx, keys...).Err()
	})
}

// scan walks the keys under prefix in batches with SCAN.
func (c *RedisCache) scan(ctx context.Context, prefix string, fn func([]string) error) error {
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", redisScanBatch).Iterator()
	batch := make([]string, 0, redisScanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == redisScanBatch {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.client.Close()
	}
	return nil
}

// Stats reports this instance's counters; Items counts the keys currently
// under the prefix across all instances.
func (c *RedisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	var items int
	_ = c.scan(ctx, "", func(keys []string) error {
		items += len(keys)
		return nil
	})
	return newStats(c.hits.Load(), c.misses.Load(), c.sets.Load(), items, 0)
}

var (
	_ Cacher        = (*RedisCache)(nil)
	_ StatsProvider = (*RedisCache)(nil)
)
