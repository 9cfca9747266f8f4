// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for sessions, request
// protection and page caching.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/institute-cms/internal/cache"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/session"
	"github.com/olegiv/institute-cms/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyPrincipal holds the *model.Principal of a signed-in request.
const ContextKeyPrincipal ContextKey = "principal"

// PrincipalTTL bounds how long a loaded principal is reused. A user row
// deleted or re-roled outside the application keeps its cached principal
// until the entry expires or Forget is called.
const PrincipalTTL = time.Minute

// PrincipalLoader resolves the session's user id into a principal.
type PrincipalLoader struct {
	sm      *scs.SessionManager
	queries *store.Queries
	cache   *cache.TypedCache[model.Principal]
	logger  *slog.Logger
}

// NewPrincipalLoader creates a loader. backend may be nil to disable caching.
func NewPrincipalLoader(sm *scs.SessionManager, queries *store.Queries, backend cache.Cacher, logger *slog.Logger) *PrincipalLoader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &PrincipalLoader{sm: sm, queries: queries, logger: logger}
	if backend != nil {
		l.cache = cache.NewTypedCache[model.Principal](backend, "principal:", PrincipalTTL)
	}
	return l
}

// Middleware puts the principal of a signed-in session into the request
// context. A session whose user no longer exists, or whose role is unknown,
// is destroyed and the request continues anonymously. With caching enabled
// that check runs against the cached principal, so a removed user is only
// signed out once the entry is older than PrincipalTTL or forgotten.
func (l *PrincipalLoader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := session.UserID(ctx, l.sm)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		p, err := l.load(ctx, userID)
		if err != nil {
			if !store.IsNotFound(err) {
				l.logger.ErrorContext(ctx, "failed to load session user", "error", err, "user_id", userID)
				WriteError(w, http.StatusInternalServerError, "Something went wrong")
				return
			}
			_ = session.Logout(ctx, l.sm)
			next.ServeHTTP(w, r)
			return
		}
		if !p.IsAuthenticated() {
			l.logger.WarnContext(ctx, "session user has unknown role",
				"category", model.EventCategoryAuth,
				"user_id", userID,
				"role", string(p.Role))
			_ = session.Logout(ctx, l.sm)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
	})
}

func (l *PrincipalLoader) load(ctx context.Context, userID string) (*model.Principal, error) {
	fetch := func() (*model.Principal, error) {
		u, err := l.queries.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &model.Principal{ID: u.ID, Name: u.Name, Role: model.Role(u.Role)}, nil
	}
	if l.cache == nil {
		return fetch()
	}
	return l.cache.GetOrSet(ctx, userID, fetch)
}

// Forget drops a cached principal, e.g. on logout.
func (l *PrincipalLoader) Forget(ctx context.Context, userID string) {
	if l.cache != nil {
		_ = l.cache.Delete(ctx, userID)
	}
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// GetPrincipal returns the request's principal, or nil when anonymous.
func GetPrincipal(r *http.Request) *model.Principal {
	p, _ := r.Context().Value(ContextKeyPrincipal).(*model.Principal)
	return p
}

// RequireSignedIn rejects anonymous requests with 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipal(r) == nil {
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
