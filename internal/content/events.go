// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
)

// EventInput is the full field set of an event.
type EventInput struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Location        string     `json:"location"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	RegistrationURL string     `json:"registration_url"`
	ImageURL        string     `json:"image_url"`
	IsPublished     bool       `json:"is_published"`
}

func (in EventInput) normalize() EventInput {
	in.Title = clean(in.Title)
	in.Description = clean(in.Description)
	in.Category = clean(in.Category)
	in.Location = clean(in.Location)
	in.RegistrationURL = clean(in.RegistrationURL)
	in.ImageURL = clean(in.ImageURL)
	if !in.StartsAt.IsZero() {
		in.StartsAt = in.StartsAt.UTC().Truncate(time.Second)
	}
	if in.EndsAt != nil {
		t := in.EndsAt.UTC().Truncate(time.Second)
		in.EndsAt = &t
	}
	return in
}

func (in EventInput) validate() error {
	var c fieldCheck
	c.required("title", in.Title)
	c.maxLen("title", in.Title, MaxTitleLength)
	c.maxLen("description", in.Description, MaxBodyLength)
	c.maxLen("category", in.Category, MaxTitleLength)
	c.maxLen("location", in.Location, MaxShortLength)
	c.url("registration_url", in.RegistrationURL)
	c.url("image_url", in.ImageURL)
	if in.StartsAt.IsZero() {
		c.add("starts_at", "Starts at is required")
	} else if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		c.add("ends_at", "Ends at must not be before starts at")
	}
	return c.err()
}

func (in EventInput) params(id, slug string, publishedAt *time.Time, now time.Time) store.UpsertEventParams {
	return store.UpsertEventParams{
		ID:              id,
		Slug:            slug,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Location:        in.Location,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		RegistrationURL: in.RegistrationURL,
		ImageURL:        in.ImageURL,
		IsPublished:     in.IsPublished,
		PublishedAt:     publishedAt,
		Now:             now,
	}
}

// CreateEvent creates an event. Events have no toggle; publishing goes
// through update.
func (s *Service) CreateEvent(ctx context.Context, p *model.Principal, in EventInput) (store.Event, error) {
	const verb = "create"
	entity := model.EntityEvent

	if err := s.authorize(ctx, p, auth.ActionCreate, entity); err != nil {
		return store.Event{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Event{}, err
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, "", s.queries.EventSlugTaken)
	if err != nil {
		return store.Event{}, err
	}

	now := s.clock()
	arg := in.params(uuid.NewString(), slug, stampPublishedAt(false, nil, in.IsPublished, nil, now), now)
	arg.AuthorID = authorID(p)

	event, err := s.queries.CreateEvent(ctx, arg)
	if err != nil {
		return store.Event{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionCreated, ID: event.ID, Slug: event.Slug,
		Paths: AffectedPaths(entity, event.Slug), Visible: event.IsPublished, Record: event,
	})
	return event, nil
}

// UpdateEvent replaces every field of the event with id.
func (s *Service) UpdateEvent(ctx context.Context, p *model.Principal, id string, in EventInput) (store.Event, error) {
	const verb = "update"
	entity := model.EntityEvent

	if err := s.authorize(ctx, p, auth.ActionUpdate, entity); err != nil {
		return store.Event{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Event{}, err
	}

	current, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return store.Event{}, s.storeErr(ctx, verb, entity, err)
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, id, s.queries.EventSlugTaken)
	if err != nil {
		return store.Event{}, err
	}

	now := s.clock()
	publishedAt := stampPublishedAt(current.IsPublished, current.PublishedAt, in.IsPublished, nil, now)
	event, err := s.queries.UpdateEvent(ctx, in.params(id, slug, publishedAt, now))
	if err != nil {
		return store.Event{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionUpdated, ID: event.ID, Slug: event.Slug, PreviousSlug: renamedFrom(current.Slug, event.Slug),
		Paths: AffectedPaths(entity, current.Slug, event.Slug), Visible: event.IsPublished, Record: event,
	})
	return event, nil
}

// DeleteEvent permanently removes the event with id.
func (s *Service) DeleteEvent(ctx context.Context, p *model.Principal, id string) error {
	const verb = "delete"
	entity := model.EntityEvent

	if err := s.authorize(ctx, p, auth.ActionDelete, entity); err != nil {
		return err
	}

	current, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}
	if err := s.queries.DeleteEvent(ctx, id); err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionDeleted, ID: current.ID, Slug: current.Slug,
		Paths: AffectedPaths(entity, current.Slug),
	})
	return nil
}

// ListEvents lists events. From and To bound starts_at.
func (s *Service) ListEvents(ctx context.Context, p *model.Principal, opts ListOptions) (Page[store.Event], error) {
	return listPage(ctx, s, p, model.EntityEvent, opts, s.queries.ListEvents, s.queries.CountEvents)
}

// GetEventBySlug returns the event with slug.
func (s *Service) GetEventBySlug(ctx context.Context, p *model.Principal, slug string, scope Scope) (store.Event, error) {
	return getOne(ctx, s, p, model.EntityEvent, scope, s.queries.GetEventBySlug, slug, eventVisible)
}

// GetEvent returns the event with id for the admin surface.
func (s *Service) GetEvent(ctx context.Context, p *model.Principal, id string) (store.Event, error) {
	return getOne(ctx, s, p, model.EntityEvent, ScopeAdmin, s.queries.GetEventByID, id, eventVisible)
}

func eventVisible(e store.Event, _ time.Time) bool { return e.IsPublished }
