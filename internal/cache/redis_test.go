// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	t.Helper()
	url := os.Getenv("INSTITUTE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: INSTITUTE_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedis(t *testing.T, prefix string) *RedisCache {
	t.Helper()
	url := skipIfNoRedis(t)
	cache, err := NewRedisCacheFromURL(url, prefix, time.Minute)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Clear(context.Background())
		_ = cache.Close()
	})
	_ = cache.Clear(context.Background())
	return cache
}

func TestRedisCache_Basic(t *testing.T) {
	cache := newTestRedis(t, "institute-test:")
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := cache.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if ok, err := cache.Has(ctx, "k"); err != nil || !ok {
		t.Errorf("Has = %v, %v", ok, err)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Get after Delete returned %v, want ErrCacheMiss", err)
	}
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	cache := newTestRedis(t, "institute-prefix-test:")
	ctx := context.Background()

	_ = cache.Set(ctx, "page:/blog#public?", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "page:/blog#public?page=2", []byte("2"), time.Minute)
	_ = cache.Set(ctx, "page:/blog/hello#public?", []byte("3"), time.Minute)

	if err := cache.DeleteByPrefix(ctx, "page:/blog#"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if _, err := cache.Get(ctx, "page:/blog#public?page=2"); err != ErrCacheMiss {
		t.Error("list page should be deleted")
	}
	if _, err := cache.Get(ctx, "page:/blog/hello#public?"); err != nil {
		t.Errorf("detail page should survive, got %v", err)
	}
}

func TestRedisCache_Stats(t *testing.T) {
	cache := newTestRedis(t, "institute-stats-test:")
	ctx := context.Background()
	cache.ResetStats()

	_ = cache.Set(ctx, "key1", []byte("value1"), time.Minute)
	_ = cache.Set(ctx, "key2", []byte("value2"), time.Minute)
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "key3")

	stats := cache.Stats()
	if stats.Sets != 2 || stats.Hits != 1 || stats.Misses != 1 || stats.Items != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRedisCache_Close(t *testing.T) {
	url := skipIfNoRedis(t)
	cache, err := NewRedisCacheFromURL(url, "institute-close-test:", time.Minute)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}

	if err := cache.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := cache.Get(context.Background(), "key"); err != ErrCacheClosed {
		t.Errorf("Get after Close returned %v, want ErrCacheClosed", err)
	}
}

func TestRedisCache_BadURL(t *testing.T) {
	if _, err := NewRedisCacheFromURL("invalid-url", "test:", time.Minute); err == nil {
		t.Error("expected error with invalid URL, got nil")
	}
	if _, err := NewRedisCacheFromURL("", "test:", time.Minute); err == nil {
		t.Error("expected error with empty URL, got nil")
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct{ in, want string }{
		{"page:/blog#", "page:/blog#"},
		{"page:/search?q=*", `page:/search\?q=\*`},
		{`a[b]\c`, `a\[b\]\\c`},
	}
	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
