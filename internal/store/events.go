// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const eventColumns = `t.id, t.slug, t.title, t.description, t.category, t.location, t.starts_at, t.ends_at,
	t.registration_url, t.image_url, t.is_published, t.published_at, t.author_id, t.created_at, t.updated_at`

var eventList = tableLayout{
	table:       "events",
	categoryCol: "category",
	dateCol:     "starts_at",
	visible:     publishedVisible,
	sorts: map[string]string{
		"title":      "title",
		"starts_at":  "starts_at",
		"created_at": "created_at",
	},
	defaultSort: []string{"t.starts_at ASC", "t.id ASC"},
}

func scanEvent(row rowScanner) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Slug, &e.Title, &e.Description, &e.Category, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.RegistrationURL, &e.ImageURL, &e.IsPublished, &e.PublishedAt, &e.AuthorID, &e.CreatedAt, &e.UpdatedAt,
		&e.AuthorName)
	return e, err
}

// UpsertEventParams carries the writable columns of an event.
type UpsertEventParams struct {
	ID              string
	Slug            string
	Title           string
	Description     string
	Category        string
	Location        string
	StartsAt        time.Time
	EndsAt          *time.Time
	RegistrationURL string
	ImageURL        string
	IsPublished     bool
	PublishedAt     *time.Time
	AuthorID        *string
	Now             time.Time
}

// CreateEvent inserts an event and returns it.
func (q *Queries) CreateEvent(ctx context.Context, arg UpsertEventParams) (Event, error) {
	_, err := q.db.ExecContext(ctx, `INSERT INTO events (
		id, slug, title, description, category, location, starts_at, ends_at,
		registration_url, image_url, is_published, published_at, author_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Slug, arg.Title, arg.Description, arg.Category, arg.Location, arg.StartsAt.UTC(), arg.EndsAt,
		arg.RegistrationURL, arg.ImageURL, arg.IsPublished, arg.PublishedAt, arg.AuthorID, arg.Now, arg.Now)
	if err != nil {
		return Event{}, err
	}
	return q.GetEventByID(ctx, arg.ID)
}

// UpdateEvent rewrites an event's content and lifecycle columns.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpsertEventParams) (Event, error) {
	_, err := q.db.ExecContext(ctx, `UPDATE events SET
		slug = ?, title = ?, description = ?, category = ?, location = ?, starts_at = ?, ends_at = ?,
		registration_url = ?, image_url = ?, is_published = ?, published_at = ?, updated_at = ?
	WHERE id = ?`,
		arg.Slug, arg.Title, arg.Description, arg.Category, arg.Location, arg.StartsAt.UTC(), arg.EndsAt,
		arg.RegistrationURL, arg.ImageURL, arg.IsPublished, arg.PublishedAt, arg.Now, arg.ID)
	if err != nil {
		return Event{}, err
	}
	return q.GetEventByID(ctx, arg.ID)
}

// DeleteEvent permanently removes an event.
func (q *Queries) DeleteEvent(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// GetEventByID returns the event with id or sql.ErrNoRows.
func (q *Queries) GetEventByID(ctx context.Context, id string) (Event, error) {
	return getOne(ctx, q.db, eventList, eventColumns, "t.id", id, scanEvent)
}

// GetEventBySlug returns the event with slug or sql.ErrNoRows.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (Event, error) {
	return getOne(ctx, q.db, eventList, eventColumns, "t.slug", slug, scanEvent)
}

// EventSlugTaken reports whether slug is used by an event other than excludeID.
func (q *Queries) EventSlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	return slugTaken(ctx, q.db, "events", slug, excludeID)
}

// ListEvents returns events matching f, soonest first by default.
func (q *Queries) ListEvents(ctx context.Context, f ListFilter) ([]Event, error) {
	b := eventList.orderAndPage(eventList.selectBuilder(eventColumns, f), f)
	return queryRows(ctx, q.db, b, scanEvent)
}

// CountEvents counts events matching f, ignoring paging.
func (q *Queries) CountEvents(ctx context.Context, f ListFilter) (int64, error) {
	return queryCount(ctx, q.db, eventList.countBuilder(f))
}
