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

// NoticeInput is the full field set of a notice. PublishedAt schedules a
// published notice; nil stamps the current time.
type NoticeInput struct {
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Category      string     `json:"category"`
	AttachmentURL string     `json:"attachment_url"`
	IsPublished   bool       `json:"is_published"`
	PublishedAt   *time.Time `json:"published_at"`
	IsPinned      bool       `json:"is_pinned"`
}

func (in NoticeInput) normalize() NoticeInput {
	in.Title = clean(in.Title)
	in.Content = clean(in.Content)
	in.Category = clean(in.Category)
	in.AttachmentURL = clean(in.AttachmentURL)
	return in
}

func (in NoticeInput) validate() error {
	var c fieldCheck
	c.required("title", in.Title)
	c.maxLen("title", in.Title, MaxTitleLength)
	c.maxLen("content", in.Content, MaxBodyLength)
	c.maxLen("category", in.Category, MaxTitleLength)
	c.url("attachment_url", in.AttachmentURL)
	if in.PublishedAt != nil && in.PublishedAt.IsZero() {
		c.add("published_at", "Published at is not a valid time")
	}
	return c.err()
}

func (in NoticeInput) params(id, slug string, publishedAt *time.Time, now time.Time) store.UpsertNoticeParams {
	return store.UpsertNoticeParams{
		ID:            id,
		Slug:          slug,
		Title:         in.Title,
		Content:       in.Content,
		Category:      in.Category,
		AttachmentURL: in.AttachmentURL,
		IsPublished:   in.IsPublished,
		PublishedAt:   publishedAt,
		IsPinned:      in.IsPinned,
		Now:           now,
	}
}

// CreateNotice creates a notice. Any signed-in principal may do so.
func (s *Service) CreateNotice(ctx context.Context, p *model.Principal, in NoticeInput) (store.Notice, error) {
	const verb = "create"
	entity := model.EntityNotice

	if err := s.authorize(ctx, p, auth.ActionCreate, entity); err != nil {
		return store.Notice{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Notice{}, err
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, "", s.queries.NoticeSlugTaken)
	if err != nil {
		return store.Notice{}, err
	}

	now := s.clock()
	arg := in.params(uuid.NewString(), slug, stampPublishedAt(false, nil, in.IsPublished, in.PublishedAt, now), now)
	arg.AuthorID = authorID(p)

	notice, err := s.queries.CreateNotice(ctx, arg)
	if err != nil {
		return store.Notice{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionCreated, ID: notice.ID, Slug: notice.Slug,
		Paths: AffectedPaths(entity, notice.Slug), Visible: noticeVisible(notice, now), Record: notice,
	})
	return notice, nil
}

// UpdateNotice replaces every field of the notice with id.
func (s *Service) UpdateNotice(ctx context.Context, p *model.Principal, id string, in NoticeInput) (store.Notice, error) {
	const verb = "update"
	entity := model.EntityNotice

	if err := s.authorize(ctx, p, auth.ActionUpdate, entity); err != nil {
		return store.Notice{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Notice{}, err
	}

	current, err := s.queries.GetNoticeByID(ctx, id)
	if err != nil {
		return store.Notice{}, s.storeErr(ctx, verb, entity, err)
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, id, s.queries.NoticeSlugTaken)
	if err != nil {
		return store.Notice{}, err
	}

	now := s.clock()
	publishedAt := stampPublishedAt(current.IsPublished, current.PublishedAt, in.IsPublished, in.PublishedAt, now)
	notice, err := s.queries.UpdateNotice(ctx, in.params(id, slug, publishedAt, now))
	if err != nil {
		return store.Notice{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionUpdated, ID: notice.ID, Slug: notice.Slug, PreviousSlug: renamedFrom(current.Slug, notice.Slug),
		Paths: AffectedPaths(entity, current.Slug, notice.Slug), Visible: noticeVisible(notice, now), Record: notice,
	})
	return notice, nil
}

// DeleteNotice permanently removes the notice with id.
func (s *Service) DeleteNotice(ctx context.Context, p *model.Principal, id string) error {
	const verb = "delete"
	entity := model.EntityNotice

	if err := s.authorize(ctx, p, auth.ActionDelete, entity); err != nil {
		return err
	}

	current, err := s.queries.GetNoticeByID(ctx, id)
	if err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}
	if err := s.queries.DeleteNotice(ctx, id); err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionDeleted, ID: current.ID, Slug: current.Slug,
		Paths: AffectedPaths(entity, current.Slug),
	})
	return nil
}

// ToggleNoticePublish flips the publish flag of the notice with id.
// Publishing keeps an existing schedule only when the notice was already
// published; otherwise it goes live now.
func (s *Service) ToggleNoticePublish(ctx context.Context, p *model.Principal, id string) (store.Notice, error) {
	const verb = "update"
	entity := model.EntityNotice

	if err := s.authorize(ctx, p, auth.ActionToggle, entity); err != nil {
		return store.Notice{}, err
	}

	current, err := s.queries.GetNoticeByID(ctx, id)
	if err != nil {
		return store.Notice{}, s.storeErr(ctx, verb, entity, err)
	}

	now := s.clock()
	published := !current.IsPublished
	notice, err := s.queries.SetNoticePublished(ctx, id, published,
		stampPublishedAt(current.IsPublished, current.PublishedAt, published, nil, now), now)
	if err != nil {
		return store.Notice{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionToggled, Field: "published", ID: notice.ID, Slug: notice.Slug,
		Paths: AffectedPaths(entity, notice.Slug), Visible: noticeVisible(notice, now), Record: notice,
	})
	return notice, nil
}

// ToggleNoticePin flips the pinned flag of the notice with id.
func (s *Service) ToggleNoticePin(ctx context.Context, p *model.Principal, id string) (store.Notice, error) {
	const verb = "update"
	entity := model.EntityNotice

	if err := s.authorize(ctx, p, auth.ActionToggle, entity); err != nil {
		return store.Notice{}, err
	}

	current, err := s.queries.GetNoticeByID(ctx, id)
	if err != nil {
		return store.Notice{}, s.storeErr(ctx, verb, entity, err)
	}

	now := s.clock()
	notice, err := s.queries.SetNoticePinned(ctx, id, !current.IsPinned, now)
	if err != nil {
		return store.Notice{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionToggled, Field: "pinned", ID: notice.ID, Slug: notice.Slug,
		Paths: AffectedPaths(entity, notice.Slug), Visible: noticeVisible(notice, now), Record: notice,
	})
	return notice, nil
}

// PublishDueNotices announces notices whose scheduled time passed in
// (after, until]. It writes nothing; the notices became visible by time
// alone. It returns the number announced.
func (s *Service) PublishDueNotices(ctx context.Context, after, until time.Time) (int, error) {
	entity := model.EntityNotice

	due, err := s.queries.ListNoticesGoingLive(ctx, after.UTC(), until.UTC())
	if err != nil {
		return 0, s.fail(ctx, "list", entity, err)
	}
	for _, n := range due {
		s.publish(ctx, nil, Change{
			Entity: entity, Action: ActionWentLive, ID: n.ID, Slug: n.Slug,
			Paths: AffectedPaths(entity, n.Slug), Visible: true, Record: n,
		})
	}
	return len(due), nil
}

// ListNotices lists notices. Public scope hides unpublished and scheduled
// notices.
func (s *Service) ListNotices(ctx context.Context, p *model.Principal, opts ListOptions) (Page[store.Notice], error) {
	return listPage(ctx, s, p, model.EntityNotice, opts, s.queries.ListNotices, s.queries.CountNotices)
}

// GetNoticeBySlug returns the notice with slug.
func (s *Service) GetNoticeBySlug(ctx context.Context, p *model.Principal, slug string, scope Scope) (store.Notice, error) {
	return getOne(ctx, s, p, model.EntityNotice, scope, s.queries.GetNoticeBySlug, slug, noticeVisible)
}

// GetNotice returns the notice with id for the admin surface.
func (s *Service) GetNotice(ctx context.Context, p *model.Principal, id string) (store.Notice, error) {
	return getOne(ctx, s, p, model.EntityNotice, ScopeAdmin, s.queries.GetNoticeByID, id, noticeVisible)
}

func noticeVisible(n store.Notice, now time.Time) bool {
	return publishedAtVisible(n.IsPublished, n.PublishedAt, now)
}
