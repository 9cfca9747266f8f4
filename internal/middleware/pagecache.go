// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/institute-cms/internal/cache"
	"github.com/olegiv/institute-cms/internal/model"
)

// HeaderCache reports whether a response came from the page cache.
const HeaderCache = "X-Cache"

// PageCacheConfig selects which requests a PageCache middleware serves.
type PageCacheConfig struct {
	Cache   *cache.PageCache
	Variant cache.Variant
	// SignedIn caches requests that carry a principal instead of
	// anonymous ones.
	SignedIn bool
	Logger   *slog.Logger
	Now      func() time.Time
}

// PageCache serves GET requests from the page cache and stores 200
// responses on a miss. Entries are keyed by path, variant and raw query,
// and are dropped when content under the path changes.
func PageCache(cfg PageCacheConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Cache == nil || r.Method != http.MethodGet || (GetPrincipal(r) != nil) != cfg.SignedIn {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			path := r.URL.Path
			if page, ok := cfg.Cache.Get(ctx, path, cfg.Variant, r.URL.RawQuery); ok {
				w.Header().Set("Content-Type", page.ContentType)
				w.Header().Set(HeaderCache, "HIT")
				setCacheControl(w, cfg.Variant)
				w.WriteHeader(page.Status)
				_, _ = w.Write(page.Body)
				return
			}

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set(HeaderCache, "MISS")
			setCacheControl(w, cfg.Variant)
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK || w.Header().Get("Set-Cookie") != "" {
				return
			}
			page := cache.Page{
				Status:      rec.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				CachedAt:    cfg.Now().UTC(),
			}
			if err := cfg.Cache.Put(ctx, path, cfg.Variant, r.URL.RawQuery, page); err != nil {
				cfg.Logger.WarnContext(ctx, "failed to store page",
					"category", model.EventCategoryCache, "path", path, "error", err)
			}
		})
	}
}

// setCacheControl keeps admin renderings out of shared caches.
func setCacheControl(w http.ResponseWriter, v cache.Variant) {
	if v == cache.VariantAdmin {
		w.Header().Set("Cache-Control", "private, no-cache")
		return
	}
	w.Header().Set("Cache-Control", "public, no-cache")
}

// recordingWriter copies the response body while passing it through.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
