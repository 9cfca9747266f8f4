// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/model"
)

// Variant separates renderings of the same path for different audiences.
type Variant string

// Page variants.
const (
	VariantPublic Variant = "public"
	VariantAdmin  Variant = "admin"
)

const pageNamespace = "page:"

// Page is a cached HTTP response body.
type Page struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CachedAt    time.Time `json:"cached_at"`
}

// PageCache caches rendered responses keyed by path, variant and query.
// Invalidating a path drops every variant and query of that exact path.
type PageCache struct {
	backend Cacher
	ttl     time.Duration
	logger  *slog.Logger

	invalidations atomic.Int64
}

// NewPageCache creates a page cache over backend.
func NewPageCache(backend Cacher, ttl time.Duration, logger *slog.Logger) *PageCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCache{
		backend: backend,
		ttl:     ttl,
		logger:  logger.With("service", "page-cache"),
	}
}

// pathPrefix is the key prefix shared by all entries of path. The '#'
// terminator keeps /blog from matching /blog/slug.
func pathPrefix(path string) string {
	return pageNamespace + path + "#"
}

func pageKey(path string, v Variant, rawQuery string) string {
	return pathPrefix(path) + string(v) + "?" + rawQuery
}

// Get returns the cached page for path.
func (c *PageCache) Get(ctx context.Context, path string, v Variant, rawQuery string) (*Page, bool) {
	data, err := c.backend.Get(ctx, pageKey(path, v, rawQuery))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.WarnContext(ctx, "page cache read failed", "category", model.EventCategoryCache, "path", path, "error", err)
		}
		return nil, false
	}

	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// Put stores a rendering of path.
func (c *PageCache) Put(ctx context.Context, path string, v Variant, rawQuery string, p Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, pageKey(path, v, rawQuery), data, c.ttl)
}

// Invalidate drops every cached rendering of the given paths.
func (c *PageCache) Invalidate(ctx context.Context, paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := c.backend.DeleteByPrefix(ctx, pathPrefix(p)); err != nil {
			errs = append(errs, err)
			continue
		}
		c.invalidations.Add(1)
	}
	return errors.Join(errs...)
}

// Clear drops every cached page.
func (c *PageCache) Clear(ctx context.Context) error {
	return c.backend.DeleteByPrefix(ctx, pageNamespace)
}

// Invalidations returns the number of paths invalidated so far.
func (c *PageCache) Invalidations() int64 {
	return c.invalidations.Load()
}

// Stats returns backend statistics when the backend provides them.
func (c *PageCache) Stats() Stats {
	if sp, ok := c.backend.(StatsProvider); ok {
		return sp.Stats()
	}
	return Stats{}
}

// Subscribe invalidates the affected paths of every content change.
func (c *PageCache) Subscribe(reg *hook.Registry) {
	reg.Subscribe(hook.ContentChanged, "invalidate-pages", "cache", 10, func(ctx context.Context, data any) error {
		change, ok := data.(content.Change)
		if !ok {
			return nil
		}
		if err := c.Invalidate(ctx, change.Paths...); err != nil {
			return err
		}
		c.logger.DebugContext(ctx, "pages invalidated", "event", change.EventName(), "paths", change.Paths)
		return nil
	})
}
