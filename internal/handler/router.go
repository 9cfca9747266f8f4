// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/institute-cms/internal/cache"
	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/middleware"
	"github.com/olegiv/institute-cms/internal/render"
	"github.com/olegiv/institute-cms/internal/scheduler"
	"github.com/olegiv/institute-cms/internal/search"
	"github.com/olegiv/institute-cms/internal/service"
	"github.com/olegiv/institute-cms/internal/store"
)

// DefaultRequestTimeout bounds request handling when RouterConfig leaves
// RequestTimeout zero.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig carries the collaborators of the HTTP surface. Pages,
// Search, Scheduler, SearchLimiter and CSRF are optional.
type RouterConfig struct {
	Content         *content.Service
	Queries         *store.Queries
	Sessions        *scs.SessionManager
	Principals      *middleware.PrincipalLoader
	LoginProtection *middleware.LoginProtection
	SearchLimiter   *middleware.IPRateLimiter
	Events          *service.EventService
	Scheduler       *scheduler.Scheduler
	Pages           *cache.PageCache
	Search          *search.Index
	Renderer        *render.Renderer
	Health          *HealthHandler
	CSRF            func(http.Handler) http.Handler
	Security        middleware.SecurityHeadersConfig
	RequestTimeout  time.Duration
	// AccessLog enables chi's request logger.
	AccessLog bool
	Logger    *slog.Logger
}

// NewRouter builds the application's HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.New()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(chimw.RedirectSlashes)
	r.Use(middleware.SecurityHeaders(cfg.Security))
	r.Use(cfg.Sessions.LoadAndSave)
	r.Use(cfg.Principals.Middleware)
	if cfg.CSRF != nil {
		r.Use(cfg.CSRF)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	authH := NewAuthHandler(cfg.Queries, cfg.Sessions, cfg.LoginProtection, cfg.Principals, cfg.Events, cfg.Logger)
	r.With(cfg.LoginProtection.Middleware()).Post("/login", authH.Login)
	r.Post("/logout", authH.Logout)
	r.With(middleware.RequireSignedIn).Get("/me", authH.Me)

	publicCache := middleware.PageCache(middleware.PageCacheConfig{
		Cache: cfg.Pages, Variant: cache.VariantPublic, Logger: cfg.Logger,
	})
	adminCache := middleware.PageCache(middleware.PageCacheConfig{
		Cache: cfg.Pages, Variant: cache.VariantAdmin, SignedIn: true, Logger: cfg.Logger,
	})

	routes := resources(cfg.Content, cfg.Renderer)
	publicH := NewPublicHandler(cfg.Content, cfg.Search, cfg.Logger)

	r.Group(func(r chi.Router) {
		r.Use(publicCache)
		r.Get("/", publicH.Home)
		for _, res := range routes {
			res.mountPublic(r)
		}
	})

	searchRoute := r.With()
	if cfg.SearchLimiter != nil {
		searchRoute = r.With(cfg.SearchLimiter.Middleware())
	}
	searchRoute.Get("/search", publicH.Search)

	adminH := NewAdminHandler(cfg.Content, cfg.Queries, cfg.Events, cfg.Scheduler, cfg.Pages, cfg.Logger)
	for _, res := range routes {
		res.mountAdmin(r, adminCache)
	}
	r.Get("/admin/users", adminH.Users)

	r.Group(func(r chi.Router) {
		r.Use(RequireSuperAdmin)
		r.Get("/admin/event-log", adminH.EventLog)
		r.Get("/admin/webhooks/deliveries", adminH.Deliveries)
		r.Get("/admin/jobs", adminH.Jobs)
		r.Post("/admin/jobs/{name}/run", adminH.RunJob)
		r.Get("/admin/cache", adminH.CacheStats)
		r.Post("/admin/cache/clear", adminH.ClearCache)
	})

	return r
}
