// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/model"
)

// Action describes what happened to a row.
type Action string

// Change actions.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionToggled Action = "toggled"
	// ActionWentLive marks a scheduled notice whose publish time arrived.
	ActionWentLive Action = "went_live"
)

// Change announces a successful content mutation. Paths lists every page
// whose cached rendering is now stale.
type Change struct {
	Entity       model.Entity `json:"entity"`
	Action       Action       `json:"action"`
	Field        string       `json:"field,omitempty"` // toggled flag: published, pinned or active
	ID           string       `json:"id"`
	Slug         string       `json:"slug"`
	PreviousSlug string       `json:"previous_slug,omitempty"`
	ActorID      string       `json:"actor_id,omitempty"`
	Paths        []string     `json:"paths"`
	// Visible reports whether the row is publicly visible after the change.
	Visible bool `json:"visible"`
	// Record is the row after the change (nil for deletes).
	Record any       `json:"record,omitempty"`
	At     time.Time `json:"at"`
}

// EventName is the dotted name used for webhooks and the event log,
// e.g. "blog.created".
func (c Change) EventName() string {
	return string(c.Entity) + "." + string(c.Action)
}

// Publisher receives Changes after successful writes.
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, change Change)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, change Change) { f(ctx, change) }

// HookPublisher returns a Publisher that delivers every Change to the
// hook.ContentChanged subscribers of reg. Subscriber failures are logged and
// never reach the caller of the write.
func HookPublisher(reg *hook.Registry, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return PublisherFunc(func(ctx context.Context, change Change) {
		if err := reg.Notify(ctx, hook.ContentChanged, change); err != nil {
			logger.ErrorContext(ctx, "content change subscriber failed",
				"category", model.EventCategorySystem,
				"event", change.EventName(),
				"error", err,
			)
		}
	})
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Change) {}

// AffectedPaths returns the pages to invalidate for a row of entity: the
// public list, the public detail page for each distinct non-empty slug, the
// admin list and, for courses, the home page.
func AffectedPaths(entity model.Entity, slugs ...string) []string {
	paths := []string{entity.ListPath()}

	seen := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		paths = append(paths, entity.DetailPath(s))
	}

	paths = append(paths, entity.AdminPath())
	if entity == model.EntityCourse {
		paths = append(paths, model.PathHome)
	}
	return paths
}
