// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the event log: the audit trail of content
// mutations, sign-ins and access denials.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
	logger  *slog.Logger
	now     func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		queries: store.New(db),
		logger:  logger.With("service", "events"),
		now:     time.Now,
	}
}

// LogEvent creates a new event log entry. userID may be nil for system
// actions.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *string, ipAddress string, metadata map[string]any) error {
	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateLogEntry(ctx, store.CreateLogEntryParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    userID,
		Metadata:  metadataJSON,
		IPAddress: ipAddress,
		CreatedAt: s.now(),
	})
	if err != nil {
		// Plain Debug: logging at WARN would loop back through the event log.
		s.logger.Debug("failed to log event", "error", err)
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message string, userID *string, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, userID, ipAddress, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message string, userID *string, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, userID, ipAddress, metadata)
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *string, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogContentChange records a content mutation under the entity's category.
func (s *EventService) LogContentChange(ctx context.Context, change content.Change) error {
	var userID *string
	if change.ActorID != "" {
		id := change.ActorID
		userID = &id
	}

	metadata := map[string]any{
		"event": change.EventName(),
		"id":    change.ID,
		"slug":  change.Slug,
	}
	if change.PreviousSlug != "" {
		metadata["previous_slug"] = change.PreviousSlug
	}
	if change.Field != "" {
		metadata["field"] = change.Field
	}
	if change.Action != content.ActionDeleted {
		metadata["visible"] = change.Visible
	}

	message := fmt.Sprintf("%s %s: %s", change.Entity.Label(), change.Action, change.Slug)
	return s.LogEvent(ctx, model.EventLevelInfo, change.Entity.EventCategory(), message, userID, "", metadata)
}

// Subscribe records every content change in the event log.
func (s *EventService) Subscribe(reg *hook.Registry) {
	reg.Subscribe(hook.ContentChanged, "audit-content", "events", 40, func(ctx context.Context, data any) error {
		change, ok := data.(content.Change)
		if !ok {
			return nil
		}
		return s.LogContentChange(ctx, change)
	})
}

// ListEvents returns event log rows, newest first.
func (s *EventService) ListEvents(ctx context.Context, filter store.LogFilter) ([]store.LogEntry, error) {
	return s.queries.ListLogEntries(ctx, filter)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteLogEntriesBefore(ctx, s.now().Add(-olderThan))
}
