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
	"github.com/olegiv/institute-cms/internal/util"
)

// CourseInput is the full field set of a course.
type CourseInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Duration    string   `json:"duration"`
	Level       string   `json:"level"`
	Fee         string   `json:"fee"`
	Highlights  []string `json:"highlights"`
	ImageURL    string   `json:"image_url"`
	IsPublished bool     `json:"is_published"`
}

func (in CourseInput) normalize() CourseInput {
	in.Title = clean(in.Title)
	in.Description = clean(in.Description)
	in.Category = clean(in.Category)
	in.Duration = clean(in.Duration)
	in.Level = clean(in.Level)
	in.Fee = clean(in.Fee)
	in.Highlights = util.NormalizeList(in.Highlights)
	in.ImageURL = clean(in.ImageURL)
	return in
}

func (in CourseInput) validate() error {
	var c fieldCheck
	c.required("title", in.Title)
	c.maxLen("title", in.Title, MaxTitleLength)
	c.maxLen("description", in.Description, MaxBodyLength)
	c.maxLen("category", in.Category, MaxTitleLength)
	c.maxLen("duration", in.Duration, MaxTitleLength)
	c.maxLen("level", in.Level, MaxTitleLength)
	c.maxLen("fee", in.Fee, MaxTitleLength)
	c.list("highlights", in.Highlights)
	c.url("image_url", in.ImageURL)
	return c.err()
}

func (in CourseInput) params(id, slug string, publishedAt *time.Time, now time.Time) store.UpsertCourseParams {
	return store.UpsertCourseParams{
		ID:          id,
		Slug:        slug,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Duration:    in.Duration,
		Level:       in.Level,
		Fee:         in.Fee,
		Highlights:  store.StringList(in.Highlights),
		ImageURL:    in.ImageURL,
		IsPublished: in.IsPublished,
		PublishedAt: publishedAt,
		Now:         now,
	}
}

// CreateCourse creates a course.
func (s *Service) CreateCourse(ctx context.Context, p *model.Principal, in CourseInput) (store.Course, error) {
	const verb = "create"
	entity := model.EntityCourse

	if err := s.authorize(ctx, p, auth.ActionCreate, entity); err != nil {
		return store.Course{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Course{}, err
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, "", s.queries.CourseSlugTaken)
	if err != nil {
		return store.Course{}, err
	}

	now := s.clock()
	arg := in.params(uuid.NewString(), slug, stampPublishedAt(false, nil, in.IsPublished, nil, now), now)
	arg.AuthorID = authorID(p)

	course, err := s.queries.CreateCourse(ctx, arg)
	if err != nil {
		return store.Course{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionCreated, ID: course.ID, Slug: course.Slug,
		Paths: AffectedPaths(entity, course.Slug), Visible: course.IsPublished, Record: course,
	})
	return course, nil
}

// UpdateCourse replaces every field of the course with id.
func (s *Service) UpdateCourse(ctx context.Context, p *model.Principal, id string, in CourseInput) (store.Course, error) {
	const verb = "update"
	entity := model.EntityCourse

	if err := s.authorize(ctx, p, auth.ActionUpdate, entity); err != nil {
		return store.Course{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Course{}, err
	}

	current, err := s.queries.GetCourseByID(ctx, id)
	if err != nil {
		return store.Course{}, s.storeErr(ctx, verb, entity, err)
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, id, s.queries.CourseSlugTaken)
	if err != nil {
		return store.Course{}, err
	}

	now := s.clock()
	publishedAt := stampPublishedAt(current.IsPublished, current.PublishedAt, in.IsPublished, nil, now)
	course, err := s.queries.UpdateCourse(ctx, in.params(id, slug, publishedAt, now))
	if err != nil {
		return store.Course{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionUpdated, ID: course.ID, Slug: course.Slug, PreviousSlug: renamedFrom(current.Slug, course.Slug),
		Paths: AffectedPaths(entity, current.Slug, course.Slug), Visible: course.IsPublished, Record: course,
	})
	return course, nil
}

// DeleteCourse permanently removes the course with id.
func (s *Service) DeleteCourse(ctx context.Context, p *model.Principal, id string) error {
	const verb = "delete"
	entity := model.EntityCourse

	if err := s.authorize(ctx, p, auth.ActionDelete, entity); err != nil {
		return err
	}

	current, err := s.queries.GetCourseByID(ctx, id)
	if err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}
	if err := s.queries.DeleteCourse(ctx, id); err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionDeleted, ID: current.ID, Slug: current.Slug,
		Paths: AffectedPaths(entity, current.Slug),
	})
	return nil
}

// ToggleCoursePublish flips the publish flag of the course with id.
func (s *Service) ToggleCoursePublish(ctx context.Context, p *model.Principal, id string) (store.Course, error) {
	const verb = "update"
	entity := model.EntityCourse

	if err := s.authorize(ctx, p, auth.ActionToggle, entity); err != nil {
		return store.Course{}, err
	}

	current, err := s.queries.GetCourseByID(ctx, id)
	if err != nil {
		return store.Course{}, s.storeErr(ctx, verb, entity, err)
	}

	now := s.clock()
	published := !current.IsPublished
	course, err := s.queries.SetCoursePublished(ctx, id, published,
		stampPublishedAt(current.IsPublished, current.PublishedAt, published, nil, now), now)
	if err != nil {
		return store.Course{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionToggled, Field: "published", ID: course.ID, Slug: course.Slug,
		Paths: AffectedPaths(entity, course.Slug), Visible: course.IsPublished, Record: course,
	})
	return course, nil
}

// ListCourses lists courses. Public scope returns only published courses.
func (s *Service) ListCourses(ctx context.Context, p *model.Principal, opts ListOptions) (Page[store.Course], error) {
	return listPage(ctx, s, p, model.EntityCourse, opts, s.queries.ListCourses, s.queries.CountCourses)
}

// GetCourseBySlug returns the course with slug.
func (s *Service) GetCourseBySlug(ctx context.Context, p *model.Principal, slug string, scope Scope) (store.Course, error) {
	return getOne(ctx, s, p, model.EntityCourse, scope, s.queries.GetCourseBySlug, slug, courseVisible)
}

// GetCourse returns the course with id for the admin surface.
func (s *Service) GetCourse(ctx context.Context, p *model.Principal, id string) (store.Course, error) {
	return getOne(ctx, s, p, model.EntityCourse, ScopeAdmin, s.queries.GetCourseByID, id, courseVisible)
}

func courseVisible(c store.Course, _ time.Time) bool { return c.IsPublished }
