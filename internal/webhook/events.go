// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook delivers signed notifications of content changes to
// configured HTTP endpoints.
package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/model"
)

// Event is the JSON body POSTed to every endpoint.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      ContentData `json:"data"`
}

// ContentData describes the changed row.
type ContentData struct {
	Entity       model.Entity `json:"entity"`
	Action       string       `json:"action"`
	Field        string       `json:"field,omitempty"`
	ID           string       `json:"id"`
	Slug         string       `json:"slug"`
	PreviousSlug string       `json:"previous_slug,omitempty"`
	ActorID      string       `json:"actor_id,omitempty"`
	Visible      bool         `json:"visible"`
	Record       any          `json:"record,omitempty"`
}

// NewEvent builds the event for a content change.
func NewEvent(change content.Change) *Event {
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      change.EventName(),
		Timestamp: at.UTC(),
		Data: ContentData{
			Entity:       change.Entity,
			Action:       string(change.Action),
			Field:        change.Field,
			ID:           change.ID,
			Slug:         change.Slug,
			PreviousSlug: change.PreviousSlug,
			ActorID:      change.ActorID,
			Visible:      change.Visible,
			Record:       change.Record,
		},
	}
}

// key identifies the row and toggled field an event is about, so repeated
// events for the same row and type can be coalesced without hiding a toggle
// of a different flag.
func (e *Event) key() string {
	return e.Type + ":" + e.Data.ID + ":" + e.Data.Field
}
