// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories. Content entities log under their own name
// (see Entity.EventCategory).
const (
	EventCategoryAuth      = "auth"
	EventCategoryUser      = "user"
	EventCategorySystem    = "system"
	EventCategoryCache     = "cache"
	EventCategoryWebhook   = "webhook"
	EventCategoryScheduler = "scheduler"
	EventCategoryContent   = "content"
)

// IsEventLevel reports whether s names an event level.
func IsEventLevel(s string) bool {
	switch s {
	case EventLevelInfo, EventLevelWarning, EventLevelError:
		return true
	}
	return false
}
