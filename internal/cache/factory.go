// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Backend names.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig holds configuration for cache creation.
type CacheConfig struct {
	// RedisURL selects the Redis backend when set.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix namespaces Redis keys.
	Prefix string

	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries for memory cache (0 = unlimited)
	MaxSize int

	CleanupInterval time.Duration

	// FallbackToMemory uses the memory backend when Redis is unreachable.
	FallbackToMemory bool
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Prefix:           "institute:",
		DefaultTTL:       time.Hour,
		MaxSize:          10000,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}
}

// CacheResult is a created cache with a description of the chosen backend.
type CacheResult struct {
	Cache       Cacher
	BackendType string
	// IsFallback is true when Redis was configured but unreachable.
	IsFallback bool
}

// NewCacheWithInfo creates the configured backend.
func NewCacheWithInfo(cfg CacheConfig) (CacheResult, error) {
	if cfg.RedisURL == "" {
		return CacheResult{Cache: newMemory(cfg), BackendType: CacheBackendMemory}, nil
	}

	opts := DefaultRedisCacheOptions()
	opts.URL = cfg.RedisURL
	if cfg.Prefix != "" {
		opts.Prefix = cfg.Prefix
	}
	if cfg.DefaultTTL > 0 {
		opts.DefaultTTL = cfg.DefaultTTL
	}

	rc, err := NewRedisCache(opts)
	if err != nil {
		if !cfg.FallbackToMemory {
			return CacheResult{}, fmt.Errorf("connecting to redis %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
		}
		slog.Warn("redis unavailable, using memory cache",
			"category", "cache",
			"url", SanitizeRedisURL(cfg.RedisURL),
			"error", err,
		)
		return CacheResult{Cache: newMemory(cfg), BackendType: CacheBackendMemory, IsFallback: true}, nil
	}
	return CacheResult{Cache: rc, BackendType: CacheBackendRedis}, nil
}

func newMemory(cfg CacheConfig) *MemoryCache {
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
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
