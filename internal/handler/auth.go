// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/middleware"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/service"
	"github.com/olegiv/institute-cms/internal/session"
	"github.com/olegiv/institute-cms/internal/store"
)

const msgInvalidCredentials = "Invalid email or password"

// AuthHandler handles sign-in, sign-out and the current principal.
type AuthHandler struct {
	queries    *store.Queries
	sm         *scs.SessionManager
	protection *middleware.LoginProtection
	loader     *middleware.PrincipalLoader
	events     *service.EventService
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(queries *store.Queries, sm *scs.SessionManager, protection *middleware.LoginProtection,
	loader *middleware.PrincipalLoader, events *service.EventService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		queries:    queries,
		sm:         sm,
		protection: protection,
		loader:     loader,
		events:     events,
		logger:     logger.With("handler", "auth"),
		now:        time.Now,
	}
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PrincipalResponse describes the signed-in user.
type PrincipalResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func principalResponse(p *model.Principal) PrincipalResponse {
	return PrincipalResponse{ID: p.ID, Name: p.Name, Role: string(p.Role)}
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := middleware.ClientIP(r)

	if email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "Email and password are required")
		return
	}

	if locked, remaining := h.protection.IsAccountLocked(email); locked {
		h.logger.WarnContext(ctx, "login attempt on locked account",
			"category", model.EventCategoryAuth, "email", email, "ip", ip)
		writeError(w, http.StatusTooManyRequests,
			"Account temporarily locked. Try again in "+remaining.Round(time.Minute).String())
		return
	}

	user, err := h.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if !store.IsNotFound(err) {
			h.logger.ErrorContext(ctx, "failed to load user for login", "error", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
			return
		}
		auth.BurnPasswordCheck(req.Password)
		h.failLogin(w, r, email, ip)
		return
	}

	ok, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		h.logger.ErrorContext(ctx, "stored password hash is invalid", "error", err, "user_id", user.ID)
	}
	if !ok {
		h.failLogin(w, r, email, ip)
		return
	}

	h.protection.RecordSuccessfulLogin(email)

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.queries.UpdateUserPassword(ctx, user.ID, hash, h.now().UTC()); err != nil {
				h.logger.WarnContext(ctx, "failed to upgrade password hash", "error", err, "user_id", user.ID)
			}
		}
	}

	if err := session.Login(ctx, h.sm, user.ID); err != nil {
		h.logger.ErrorContext(ctx, "failed to start session", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.queries.UpdateUserLastLogin(ctx, user.ID, h.now().UTC()); err != nil {
		h.logger.WarnContext(ctx, "failed to record last login", "error", err, "user_id", user.ID)
	}
	h.loader.Forget(ctx, user.ID)
	_ = h.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged in", &user.ID, ip,
		map[string]any{"email": user.Email, "client": clientDevice(r.UserAgent())})

	p := &model.Principal{ID: user.ID, Name: user.Name, Role: model.Role(user.Role)}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": principalResponse(p)})
}

func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, email, ip string) {
	locked, d := h.protection.RecordFailedAttempt(email)
	h.logger.WarnContext(r.Context(), "login failed",
		"category", model.EventCategoryAuth, "email", email, "ip", ip)
	if locked {
		writeError(w, http.StatusTooManyRequests,
			"Too many failed attempts. Account locked for "+d.Round(time.Minute).String())
		return
	}
	writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := session.UserID(ctx, h.sm)
	if err := session.Logout(ctx, h.sm); err != nil {
		h.logger.ErrorContext(ctx, "failed to end session", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if userID != "" {
		h.loader.Forget(ctx, userID)
		_ = h.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged out", &userID, middleware.ClientIP(r), nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me handles GET /me. It is mounted behind middleware.RequireSignedIn.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principalResponse(middleware.GetPrincipal(r)))
}
