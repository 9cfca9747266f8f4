// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/institute-cms/internal/cache"
	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/middleware"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/render"
	"github.com/olegiv/institute-cms/internal/search"
	"github.com/olegiv/institute-cms/internal/service"
	"github.com/olegiv/institute-cms/internal/session"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/testutil"
)

// assertStatus reports a status code mismatch.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// testApp is a fully wired server over a temporary database.
type testApp struct {
	srv    *httptest.Server
	db     *sql.DB
	svc    *content.Service
	pages  *cache.PageCache
	index  *search.Index
	events *service.EventService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	logger := testutil.TestLoggerSilent()
	queries := store.New(db)

	reg := hook.NewRegistry(logger)
	svc := content.NewService(db, logger, content.WithPublisher(content.HookPublisher(reg, logger)))

	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	pages := cache.NewPageCache(backend, time.Minute, logger)
	pages.Subscribe(reg)

	renderer := render.New()
	index, err := search.Open("", renderer, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	index.Subscribe(reg)

	events := service.NewEventService(db, logger)
	events.Subscribe(reg)

	sm := session.New(db, true)
	router := NewRouter(RouterConfig{
		Content:         svc,
		Queries:         queries,
		Sessions:        sm,
		Principals:      middleware.NewPrincipalLoader(sm, queries, nil, logger),
		LoginProtection: middleware.NewLoginProtection(middleware.LoginProtectionConfig{IPRateLimit: 100, IPBurst: 100}, logger),
		Events:          events,
		Pages:           pages,
		Search:          index,
		Renderer:        renderer,
		Health:          NewHealthHandler(db, "", index, "test"),
		Security:        middleware.DefaultSecurityHeadersConfig(true),
		Logger:          logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, db: db, svc: svc, pages: pages, index: index, events: events}
}

// client returns a cookie-keeping client; anonymous until login.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// signedIn creates a user with role and returns a client signed in as them.
func (a *testApp) signedIn(t *testing.T, role model.Role) (*http.Client, store.User) {
	t.Helper()
	user, _ := testutil.CreateUser(t, a.db, string(role)+" user", role)
	c := a.client(t)
	resp := a.do(t, c, http.MethodPost, "/login", map[string]string{
		"email": user.Email, "password": testutil.TestPassword,
	})
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	return c, user
}

type testResponse struct {
	status int
	header http.Header
	raw    string
	body   map[string]any
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path string, body any) testResponse {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := testResponse{status: resp.StatusCode, header: resp.Header, raw: string(raw)}
	_ = json.Unmarshal(raw, &out.body)
	return out
}

// entity returns the "entity" object of a mutation result.
func (r testResponse) entity(t *testing.T) map[string]any {
	t.Helper()
	e, ok := r.body["entity"].(map[string]any)
	require.True(t, ok, "response has no entity: %s", r.raw)
	return e
}
