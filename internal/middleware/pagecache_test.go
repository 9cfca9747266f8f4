// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/institute-cms/internal/cache"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/testutil"
)

type countingHandler struct {
	calls  atomic.Int32
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := h.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"n":` + strconv.Itoa(int(n)) + `}`))
}

func newTestPageCache() *cache.PageCache {
	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	return cache.NewPageCache(backend, time.Minute, testutil.TestLoggerSilent())
}

func doGet(h http.Handler, target string, p *model.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), p))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPageCache_PublicHitAndMiss(t *testing.T) {
	pc := newTestPageCache()
	next := &countingHandler{}
	h := PageCache(PageCacheConfig{Cache: pc, Variant: cache.VariantPublic, Logger: testutil.TestLoggerSilent()})(next)

	first := doGet(h, "/blog", nil)
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))
	assert.Equal(t, `{"n":1}`, first.Body.String())

	second := doGet(h, "/blog", nil)
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, `{"n":1}`, second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.EqualValues(t, 1, next.calls.Load())

	other := doGet(h, "/blog?category=news", nil)
	assert.Equal(t, "MISS", other.Header().Get(HeaderCache), "query string is part of the key")
}

func TestPageCache_InvalidateDropsEntry(t *testing.T) {
	pc := newTestPageCache()
	next := &countingHandler{}
	h := PageCache(PageCacheConfig{Cache: pc, Variant: cache.VariantPublic})(next)

	doGet(h, "/blog/hello-world", nil)
	doGet(h, "/blog/hello-world?x=1", nil)
	require.NoError(t, pc.Invalidate(t.Context(), "/blog/hello-world"))

	rr := doGet(h, "/blog/hello-world", nil)
	assert.Equal(t, "MISS", rr.Header().Get(HeaderCache))
	rr = doGet(h, "/blog/hello-world?x=1", nil)
	assert.Equal(t, "MISS", rr.Header().Get(HeaderCache))
	assert.EqualValues(t, 4, next.calls.Load())
}

func TestPageCache_PublicSkipsSignedIn(t *testing.T) {
	pc := newTestPageCache()
	next := &countingHandler{}
	h := PageCache(PageCacheConfig{Cache: pc, Variant: cache.VariantPublic})(next)
	p := &model.Principal{ID: "u1", Name: "Editor", Role: model.RoleContentEditor}

	doGet(h, "/notices", p)
	rr := doGet(h, "/notices", p)
	assert.Empty(t, rr.Header().Get(HeaderCache))
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestPageCache_AdminVariant(t *testing.T) {
	pc := newTestPageCache()
	next := &countingHandler{}
	h := PageCache(PageCacheConfig{Cache: pc, Variant: cache.VariantAdmin, SignedIn: true})(next)
	p := &model.Principal{ID: "u1", Name: "Admin", Role: model.RoleAdmin}

	rr := doGet(h, "/admin/blogs", nil)
	assert.Empty(t, rr.Header().Get(HeaderCache), "anonymous requests bypass the admin cache")

	doGet(h, "/admin/blogs", p)
	rr = doGet(h, "/admin/blogs", p)
	assert.Equal(t, "HIT", rr.Header().Get(HeaderCache))
	assert.Equal(t, "private, no-cache", rr.Header().Get("Cache-Control"))

	_, ok := pc.Get(t.Context(), "/admin/blogs", cache.VariantPublic, "")
	assert.False(t, ok, "variants are stored separately")
}

func TestPageCache_SkipsNonOK(t *testing.T) {
	pc := newTestPageCache()
	next := &countingHandler{status: http.StatusNotFound}
	h := PageCache(PageCacheConfig{Cache: pc, Variant: cache.VariantPublic})(next)

	doGet(h, "/blog/missing", nil)
	rr := doGet(h, "/blog/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get(HeaderCache))
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestPageCache_SkipsNonGET(t *testing.T) {
	pc := newTestPageCache()
	next := &countingHandler{}
	h := PageCache(PageCacheConfig{Cache: pc, Variant: cache.VariantPublic})(next)

	for range 2 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodHead, "/blog", nil))
	}
	assert.EqualValues(t, 2, next.calls.Load())
}
