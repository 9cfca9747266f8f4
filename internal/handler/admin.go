// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/institute-cms/internal/cache"
	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/middleware"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/scheduler"
	"github.com/olegiv/institute-cms/internal/service"
	"github.com/olegiv/institute-cms/internal/store"
)

// maxAdminListLimit caps event-log and delivery listings.
const maxAdminListLimit = 200

// AdminHandler serves the SUPER_ADMIN operational endpoints and the user list.
type AdminHandler struct {
	svc       *content.Service
	queries   *store.Queries
	events    *service.EventService
	scheduler *scheduler.Scheduler
	pages     *cache.PageCache
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler. sched and pages may be nil.
func NewAdminHandler(svc *content.Service, queries *store.Queries, events *service.EventService,
	sched *scheduler.Scheduler, pages *cache.PageCache, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		svc:       svc,
		queries:   queries,
		events:    events,
		scheduler: sched,
		pages:     pages,
		logger:    logger.With("handler", "admin"),
	}
}

// Users handles GET /admin/users.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), principal(r))
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	if users == nil {
		users = []store.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

// RequireSuperAdmin rejects callers that are not SUPER_ADMIN.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := middleware.GetPrincipal(r)
		switch {
		case p == nil:
			writeError(w, http.StatusUnauthorized, "Unauthorized")
		case !p.IsSuperAdmin():
			slog.WarnContext(r.Context(), "access denied",
				"category", model.EventCategoryAuth, "user_id", p.ID, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "Unauthorized")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// EventLog handles GET /admin/event-log?level=&category=&limit=&offset=.
func (h *AdminHandler) EventLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if level := q.Get("level"); level != "" && !model.IsEventLevel(level) {
		writeError(w, http.StatusBadRequest, "Invalid level")
		return
	}
	limit := min(queryInt(q.Get("limit")), maxAdminListLimit)
	if limit == 0 {
		limit = content.DefaultPageSize
	}
	entries, err := h.events.ListEvents(r.Context(), store.LogFilter{
		Level:    q.Get("level"),
		Category: q.Get("category"),
		Limit:    limit,
		Offset:   queryInt(q.Get("offset")),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list event log", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if entries == nil {
		entries = []store.LogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// Deliveries handles GET /admin/webhooks/deliveries?limit=.
func (h *AdminHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	limit := min(queryInt(r.URL.Query().Get("limit")), maxAdminListLimit)
	if limit == 0 {
		limit = content.DefaultPageSize
	}
	deliveries, err := h.queries.ListRecentDeliveries(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list webhook deliveries", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if deliveries == nil {
		deliveries = []store.WebhookDelivery{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": deliveries})
}

// Jobs handles GET /admin/jobs.
func (h *AdminHandler) Jobs(w http.ResponseWriter, _ *http.Request) {
	jobs := []scheduler.JobInfo{}
	if h.scheduler != nil {
		jobs = h.scheduler.List()
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

// RunJob handles POST /admin/jobs/{name}/run.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.scheduler.TriggerNow(r.Context(), name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.audit(r, model.EventLevelWarning, model.EventCategoryScheduler, "Manual job run failed",
			map[string]any{"job": name, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Job failed: "+err.Error())
		return
	}
	h.audit(r, model.EventLevelInfo, model.EventCategoryScheduler, "Manual job run", map[string]any{"job": name})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// CacheStats handles GET /admin/cache.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	if h.pages == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":       true,
		"stats":         h.pages.Stats(),
		"invalidations": h.pages.Invalidations(),
	})
}

// ClearCache handles POST /admin/cache/clear.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.pages != nil {
		if err := h.pages.Clear(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to clear page cache", "error", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
			return
		}
	}
	h.logger.InfoContext(r.Context(), "page cache cleared", "category", model.EventCategoryCache)
	h.audit(r, model.EventLevelInfo, model.EventCategoryCache, "Page cache cleared", nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// audit records an operator action in the event log. Failures are logged and
// never fail the request.
func (h *AdminHandler) audit(r *http.Request, level, category, message string, metadata map[string]any) {
	if h.events == nil {
		return
	}
	var userID *string
	if p := principal(r); p != nil {
		userID = &p.ID
	}
	ctx := r.Context()
	ip := middleware.ClientIP(r)
	var err error
	if level == model.EventLevelWarning {
		err = h.events.LogWarning(ctx, category, message, userID, ip, metadata)
	} else {
		err = h.events.LogInfo(ctx, category, message, userID, ip, metadata)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record admin event", "error", err, "category", category)
	}
}
