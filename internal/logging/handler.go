// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors warnings and errors
// into the event log.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
)

// Attribute keys with special meaning to the event log.
const (
	KeyCategory = "category"
	KeyUserID   = "user_id"
	KeyIP       = "ip"
)

// writeTimeout bounds a single event log insert.
const writeTimeout = 2 * time.Second

// EventLogHandler is a slog.Handler that wraps another handler and also
// writes records at or above its level to the event log.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr // attrs added with WithAttrs, outside any group
	group   string
}

// NewEventLogHandler forwards WARN and above to the event log.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.inner.Enabled(ctx, r.Level) {
		err = h.inner.Handle(ctx, r)
	}
	if r.Level >= h.level {
		h.writeToEventLog(ctx, r)
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	if h.group == "" {
		clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	if clone.group == "" {
		clone.group = name
	} else {
		clone.group += "." + name
	}
	return &clone
}

// writeToEventLog writes a record to the event log. It uses its own context
// so a cancelled request still leaves its trace.
func (h *EventLogHandler) writeToEventLog(ctx context.Context, r slog.Record) {
	entry := store.CreateLogEntryParams{
		Level:     slogLevelToEventLevel(r.Level),
		Message:   r.Message,
		Metadata:  "{}",
		CreatedAt: r.Time,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	metadata := make(map[string]string)
	collect := func(a slog.Attr) {
		switch a.Key {
		case KeyCategory:
			entry.Category = a.Value.String()
		case KeyUserID:
			if id := a.Value.String(); id != "" {
				entry.UserID = &id
			}
		case KeyIP:
			entry.IPAddress = a.Value.String()
		default:
			metadata[a.Key] = a.Value.String()
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		collect(a)
		return true
	})

	if entry.Category == "" {
		entry.Category = inferCategory(r.Message)
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			entry.Metadata = string(b)
		}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	_, _ = h.queries.CreateLogEntry(writeCtx, entry)
}

// slogLevelToEventLevel converts a slog.Level to an event log level.
func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when no category
// attribute was given.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") ||
		strings.Contains(msg, "logout") || strings.Contains(msg, "access denied"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "webhook"):
		return model.EventCategoryWebhook
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	case strings.Contains(msg, "scheduled") || strings.Contains(msg, "cron"):
		return model.EventCategoryScheduler
	case strings.Contains(msg, "user"):
		return model.EventCategoryUser
	case strings.Contains(msg, "content"):
		return model.EventCategoryContent
	default:
		return model.EventCategorySystem
	}
}
