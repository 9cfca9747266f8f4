// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// newTestMemory returns a cache with a manual clock and no cleanup loop.
func newTestMemory(maxSize int) (*MemoryCache, *time.Time) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: maxSize})
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache, _ := newTestMemory(100)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", string(val))
	}

	has, err := cache.Has(ctx, "key1")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !has {
		t.Error("expected key1 to exist")
	}

	if err := cache.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "key1"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache, now := newTestMemory(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("value"), time.Minute)
	_ = cache.Set(ctx, "default", []byte("value"), 0)

	*now = now.Add(2 * time.Minute)

	if _, err := cache.Get(ctx, "short"); err != ErrCacheMiss {
		t.Errorf("expected short TTL key to expire, got %v", err)
	}
	if has, _ := cache.Has(ctx, "short"); has {
		t.Error("expired key reported by Has")
	}
	if _, err := cache.Get(ctx, "default"); err != nil {
		t.Error("expected default TTL key to still exist")
	}
	if got := cache.Stats().Items; got != 1 {
		t.Errorf("Items = %d, want 1 after expired read", got)
	}
}

func TestMemoryCache_EvictsAtCapacity(t *testing.T) {
	cache, now := newTestMemory(2)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "soon", []byte("a"), time.Minute)
	_ = cache.Set(ctx, "later", []byte("b"), time.Hour)
	_ = cache.Set(ctx, "new", []byte("c"), time.Hour)

	if _, err := cache.Get(ctx, "soon"); err != ErrCacheMiss {
		t.Errorf("entry closest to expiry should be evicted, got %v", err)
	}
	for _, key := range []string{"later", "new"} {
		if _, err := cache.Get(ctx, key); err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
		}
	}

	// Overwriting an existing key never evicts.
	_ = cache.Set(ctx, "new", []byte("d"), time.Hour)
	if got := cache.Stats().Items; got != 2 {
		t.Errorf("Items = %d, want 2", got)
	}

	*now = now.Add(2 * time.Hour)
	_ = cache.Set(ctx, "fresh", []byte("e"), time.Hour)
	if got := cache.Stats().Items; got != 1 {
		t.Errorf("Items = %d, want 1 once expired entries are dropped", got)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	cache, _ := newTestMemory(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "page:/blog#a", []byte("1"), 0)
	_ = cache.Set(ctx, "page:/blog#b", []byte("2"), 0)
	_ = cache.Set(ctx, "page:/blog/x#a", []byte("3"), 0)

	if err := cache.DeleteByPrefix(ctx, "page:/blog#"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	for _, key := range []string{"page:/blog#a", "page:/blog#b"} {
		if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
			t.Errorf("expected %s to be deleted", key)
		}
	}
	if _, err := cache.Get(ctx, "page:/blog/x#a"); err != nil {
		t.Error("expected detail page to survive list invalidation")
	}
}

func TestMemoryCache_ClearAndStats(t *testing.T) {
	cache, _ := newTestMemory(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "key1", []byte("value1"), 0)
	_ = cache.Set(ctx, "key2", []byte("value2"), 0)
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "nonexistent")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 2 || stats.Items != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Size != 12 {
		t.Errorf("Size = %d, want 12", stats.Size)
	}
	expected := float64(2) / float64(3) * 100
	if stats.HitRate < expected-0.01 || stats.HitRate > expected+0.01 {
		t.Errorf("expected hit rate ~%.2f, got %.2f", expected, stats.HitRate)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := cache.Stats(); got.Items != 0 || got.Size != 0 {
		t.Errorf("after Clear: %+v", got)
	}

	cache.ResetStats()
	if got := cache.Stats(); got.Hits != 0 || got.HitRate != 0 {
		t.Errorf("after ResetStats: %+v", got)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 10})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = cache.Set(ctx, "key", []byte("value"), 0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = cache.Get(ctx, "key")
				_ = cache.DeleteByPrefix(ctx, "nothing")
			}
		}()
	}
	wg.Wait()

	if _, err := cache.Get(ctx, "key"); err != nil {
		t.Error("expected key to exist after concurrent access")
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	cache, _ := newTestMemory(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	original := []byte("original")
	_ = cache.Set(ctx, "key", original, 0)
	original[0] = 'X'

	val, err := cache.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "original" {
		t.Errorf("expected original, got %s (cache didn't copy on set)", string(val))
	}

	val[0] = 'Y'
	val2, _ := cache.Get(ctx, "key")
	if string(val2) != "original" {
		t.Errorf("expected original, got %s (cache didn't copy on get)", string(val2))
	}
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, CleanupInterval: time.Second})
	ctx := context.Background()

	_ = cache.Set(ctx, "key", []byte("value"), 0)
	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := cache.Get(ctx, "key"); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed after close, got %v", err)
	}
	if err := cache.Set(ctx, "key2", []byte("value"), 0); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed on Set after close, got %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("second Close should succeed, got %v", err)
	}
}
