// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/search"
	"github.com/olegiv/institute-cms/internal/store"
)

// PublicHandler serves the aggregate public pages.
type PublicHandler struct {
	svc    *content.Service
	index  *search.Index
	logger *slog.Logger
}

// NewPublicHandler creates a PublicHandler. index may be nil, which
// disables search.
func NewPublicHandler(svc *content.Service, index *search.Index, logger *slog.Logger) *PublicHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublicHandler{svc: svc, index: index, logger: logger}
}

// HomeResponse is the body of GET /.
type HomeResponse struct {
	Courses []store.Course `json:"courses"`
}

// Home handles GET /.
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	courses, err := h.svc.Home(r.Context())
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	if courses == nil {
		courses = []store.Course{}
	}
	writeJSON(w, http.StatusOK, HomeResponse{Courses: courses})
}

// Search handles GET /search?q=&type=&limit=&offset=.
func (h *PublicHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeError(w, http.StatusServiceUnavailable, "Search is not available")
		return
	}

	q := r.URL.Query()
	var entity model.Entity
	if t := q.Get("type"); t != "" {
		entity = model.Entity(t)
		if !isContentEntity(entity) {
			writeError(w, http.StatusBadRequest, "Unknown content type")
			return
		}
	}

	res, err := h.index.Search(r.Context(), q.Get("q"), entity, queryInt(q.Get("limit")), queryInt(q.Get("offset")))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func isContentEntity(e model.Entity) bool {
	for _, c := range model.ContentEntities {
		if c == e {
			return true
		}
	}
	return false
}
