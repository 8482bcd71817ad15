// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testLock struct {
	ID     int64 `json:"id"`
	Locked bool  `json:"locked"`
}

func newTypedTestCache(t *testing.T) (*TypedCache[testLock], *MemoryCache) {
	t.Helper()
	mem := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	return NewTypedCache[testLock](mem, time.Hour), mem
}

func TestTypedCache_BasicOperations(t *testing.T) {
	cache, _ := newTypedTestCache(t)
	ctx := context.Background()

	lock := &testLock{ID: 1, Locked: true}
	if err := cache.Set(ctx, "lock:1", lock); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found := cache.Get(ctx, "lock:1")
	if !found {
		t.Fatal("expected to find lock:1")
	}
	if *got != *lock {
		t.Errorf("got %+v, want %+v", got, lock)
	}
	if !cache.Has(ctx, "lock:1") {
		t.Error("expected Has to report lock:1")
	}

	if err := cache.Delete(ctx, "lock:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := cache.Get(ctx, "lock:1"); found {
		t.Error("expected lock:1 to be deleted")
	}
}

func TestTypedCache_UndecodableEntryIsMiss(t *testing.T) {
	cache, mem := newTypedTestCache(t)
	ctx := context.Background()

	_ = mem.Set(ctx, "lock:2", []byte("{not json"), 0)

	if _, err := cache.Lookup(ctx, "lock:2"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestTypedCache_GetOrSet(t *testing.T) {
	cache, _ := newTypedTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func() (*testLock, error) {
		calls++
		return &testLock{ID: 7}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, "lock:7", load)
		if err != nil {
			t.Fatalf("GetOrSet failed: %v", err)
		}
		if got.ID != 7 {
			t.Errorf("got ID %d, want 7", got.ID)
		}
	}
	if calls != 1 {
		t.Errorf("expected loader to run once, ran %d times", calls)
	}
}

func TestTypedCache_GetOrSetError(t *testing.T) {
	cache, _ := newTypedTestCache(t)
	ctx := context.Background()

	wantErr := errors.New("db down")
	_, err := cache.GetOrSet(ctx, "lock:8", func() (*testLock, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("expected loader error, got %v", err)
	}
	if cache.Has(ctx, "lock:8") {
		t.Error("failed load must not be cached")
	}
}

func TestTypedCache_SetWithTTL(t *testing.T) {
	cache, _ := newTypedTestCache(t)
	ctx := context.Background()

	_ = cache.SetWithTTL(ctx, "lock:9", &testLock{ID: 9}, 50*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	if _, found := cache.Get(ctx, "lock:9"); found {
		t.Error("expected entry to expire")
	}
}
