// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content implements the authorised create, update, delete and
// toggle operations for the institute's six content entities, together with
// their list and detail queries.
//
// Every operation takes the acting principal explicitly (nil means
// anonymous) and returns either the affected row or a *Error whose message
// is safe to show the caller. Successful writes are announced to a
// Publisher as a Change.
package content

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/util"
)

// Service provides content operations.
type Service struct {
	queries   *store.Queries
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the receiver of Changes.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a content Service.
func NewService(db *sql.DB, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		queries:   store.New(db),
		publisher: nopPublisher{},
		logger:    logger.With("service", "content"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current time in UTC at second precision.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// authorize checks capability for p and logs denials.
func (s *Service) authorize(ctx context.Context, p *model.Principal, action auth.Action, entity model.Entity) error {
	d := auth.Authorize(p, auth.Can(action, entity))
	if d.Allowed {
		return nil
	}

	attrs := []any{
		"category", model.EventCategoryAuth,
		"capability", auth.Can(action, entity).String(),
		"reason", d.Reason,
	}
	if p != nil {
		attrs = append(attrs, "user_id", p.ID, "role", string(p.Role))
	}
	s.logger.WarnContext(ctx, "access denied", attrs...)
	return unauthorized(d)
}

// slugChecker reports whether slug is taken by a row other than excludeID.
type slugChecker func(ctx context.Context, slug, excludeID string) (bool, error)

// claimSlug derives the slug for title and fails when another row of the
// same entity already holds it.
func (s *Service) claimSlug(ctx context.Context, entity model.Entity, verb, field, title, excludeID string, taken slugChecker) (string, error) {
	slug := util.DeriveSlug(title)
	if slug == "" {
		return "", validation(FieldError{Field: field, Message: titleLabel(field) + " must contain letters or digits"})
	}

	exists, err := taken(ctx, slug, excludeID)
	if err != nil {
		return "", s.fail(ctx, verb, entity, err)
	}
	if exists {
		return "", conflict(entity)
	}
	return slug, nil
}

// storeErr converts a write error into a user-facing *Error.
func (s *Service) storeErr(ctx context.Context, verb string, entity model.Entity, err error) error {
	switch {
	case store.IsUniqueViolation(err):
		return conflict(entity)
	case store.IsNotFound(err):
		return notFound(entity)
	default:
		return s.fail(ctx, verb, entity, err)
	}
}

// fail logs an infrastructure error and returns the generic message.
func (s *Service) fail(ctx context.Context, verb string, entity model.Entity, err error) error {
	s.logger.ErrorContext(ctx, "content operation failed",
		"category", entity.EventCategory(),
		"operation", verb,
		"entity", string(entity),
		"error", err,
	)
	return internal(verb, entity)
}

func (s *Service) publish(ctx context.Context, p *model.Principal, c Change) {
	if p != nil {
		c.ActorID = p.ID
	}
	if c.At.IsZero() {
		c.At = s.clock()
	}
	s.publisher.Publish(ctx, c)

	s.logger.InfoContext(ctx, string(c.Entity)+" "+string(c.Action),
		"id", c.ID,
		"slug", c.Slug,
		"actor_id", c.ActorID,
	)
}

// stampPublishedAt applies the publish timestamp rule: unpublished rows have
// no timestamp; a requested time wins; an already published row keeps its
// time; otherwise the row is stamped now.
func stampPublishedAt(wasPublished bool, prev *time.Time, published bool, requested *time.Time, now time.Time) *time.Time {
	if !published {
		return nil
	}
	if requested != nil {
		t := requested.UTC().Truncate(time.Second)
		return &t
	}
	if wasPublished && prev != nil {
		return prev
	}
	return &now
}

func authorID(p *model.Principal) *string {
	if !p.IsAuthenticated() {
		return nil
	}
	id := p.ID
	return &id
}
