// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"time"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
)

// DefaultPageSize is used when ListOptions.Limit is zero.
const DefaultPageSize = 20

// Scope selects which rows a query may return.
type Scope int

// Scopes.
const (
	// ScopePublic returns only rows visible on the public site.
	ScopePublic Scope = iota
	// ScopeAdmin returns every row and requires a signed-in principal.
	ScopeAdmin
)

// ListOptions filters and orders a list query.
type ListOptions struct {
	Scope Scope
	// Category filters on category, department (faculty) or industry (startups).
	Category string
	// Sort is an entity-specific key such as "title" or "-published_at".
	Sort   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Page is one page of list results.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// checkScope requires a signed-in principal for admin reads.
func (s *Service) checkScope(ctx context.Context, p *model.Principal, scope Scope, entity model.Entity) error {
	if scope != ScopeAdmin || p.IsAuthenticated() {
		return nil
	}
	s.logger.WarnContext(ctx, "access denied",
		"category", model.EventCategoryAuth,
		"capability", "admin view "+string(entity),
		"reason", auth.ReasonUnauthorized,
	)
	return &Error{Kind: KindUnauthorized, Message: auth.ReasonUnauthorized}
}

func (s *Service) listFilter(opts ListOptions) store.ListFilter {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > store.MaxListLimit {
		limit = store.MaxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	return store.ListFilter{
		Category:    opts.Category,
		VisibleOnly: opts.Scope == ScopePublic,
		Now:         s.now().UTC(),
		From:        opts.From,
		To:          opts.To,
		Sort:        opts.Sort,
		Limit:       limit,
		Offset:      offset,
	}
}

type lister[T any] func(ctx context.Context, f store.ListFilter) ([]T, error)
type counter func(ctx context.Context, f store.ListFilter) (int64, error)

// listPage runs a scoped list query and its count.
func listPage[T any](ctx context.Context, s *Service, p *model.Principal, entity model.Entity, opts ListOptions, list lister[T], count counter) (Page[T], error) {
	if err := s.checkScope(ctx, p, opts.Scope, entity); err != nil {
		return Page[T]{}, err
	}

	f := s.listFilter(opts)
	items, err := list(ctx, f)
	if err != nil {
		return Page[T]{}, s.fail(ctx, "list", entity, err)
	}
	total, err := count(ctx, f)
	if err != nil {
		return Page[T]{}, s.fail(ctx, "list", entity, err)
	}
	return Page[T]{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// getOne runs a scoped detail query. visible decides whether the public
// may see the row.
func getOne[T any](ctx context.Context, s *Service, p *model.Principal, entity model.Entity, scope Scope, get func(context.Context, string) (T, error), key string, visible func(T, time.Time) bool) (T, error) {
	var zero T
	if err := s.checkScope(ctx, p, scope, entity); err != nil {
		return zero, err
	}
	if key == "" {
		return zero, notFound(entity)
	}

	row, err := get(ctx, key)
	if err != nil {
		if store.IsNotFound(err) {
			return zero, notFound(entity)
		}
		return zero, s.fail(ctx, "load", entity, err)
	}
	if scope == ScopePublic && !visible(row, s.now().UTC()) {
		return zero, notFound(entity)
	}
	return row, nil
}

// publishedAtVisible reports whether a scheduled row is live at now.
func publishedAtVisible(published bool, at *time.Time, now time.Time) bool {
	return published && at != nil && !at.After(now)
}
