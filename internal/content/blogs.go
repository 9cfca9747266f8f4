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

// BlogInput is the full field set of a blog post.
type BlogInput struct {
	Title         string `json:"title"`
	Excerpt       string `json:"excerpt"`
	Content       string `json:"content"`
	Category      string `json:"category"`
	CoverImageURL string `json:"cover_image_url"`
	IsPublished   bool   `json:"is_published"`
}

func (in BlogInput) normalize() BlogInput {
	in.Title = clean(in.Title)
	in.Excerpt = clean(in.Excerpt)
	in.Content = clean(in.Content)
	in.Category = clean(in.Category)
	in.CoverImageURL = clean(in.CoverImageURL)
	return in
}

func (in BlogInput) validate() error {
	var c fieldCheck
	c.required("title", in.Title)
	c.maxLen("title", in.Title, MaxTitleLength)
	c.maxLen("excerpt", in.Excerpt, MaxShortLength)
	c.maxLen("content", in.Content, MaxBodyLength)
	c.maxLen("category", in.Category, MaxTitleLength)
	c.url("cover_image_url", in.CoverImageURL)
	return c.err()
}

func (in BlogInput) params(id, slug string, publishedAt *time.Time, now time.Time) store.UpsertBlogParams {
	return store.UpsertBlogParams{
		ID:            id,
		Slug:          slug,
		Title:         in.Title,
		Excerpt:       in.Excerpt,
		Content:       in.Content,
		Category:      in.Category,
		CoverImageURL: in.CoverImageURL,
		IsPublished:   in.IsPublished,
		PublishedAt:   publishedAt,
		Now:           now,
	}
}

// CreateBlog creates a blog post authored by p.
func (s *Service) CreateBlog(ctx context.Context, p *model.Principal, in BlogInput) (store.Blog, error) {
	const verb = "create"
	entity := model.EntityBlog

	if err := s.authorize(ctx, p, auth.ActionCreate, entity); err != nil {
		return store.Blog{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Blog{}, err
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, "", s.queries.BlogSlugTaken)
	if err != nil {
		return store.Blog{}, err
	}

	now := s.clock()
	arg := in.params(uuid.NewString(), slug, stampPublishedAt(false, nil, in.IsPublished, nil, now), now)
	arg.AuthorID = authorID(p)

	blog, err := s.queries.CreateBlog(ctx, arg)
	if err != nil {
		return store.Blog{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionCreated, ID: blog.ID, Slug: blog.Slug,
		Paths: AffectedPaths(entity, blog.Slug), Visible: blog.IsPublished, Record: blog,
	})
	return blog, nil
}

// UpdateBlog replaces every field of the blog with id. The slug is derived
// again from the new title.
func (s *Service) UpdateBlog(ctx context.Context, p *model.Principal, id string, in BlogInput) (store.Blog, error) {
	const verb = "update"
	entity := model.EntityBlog

	if err := s.authorize(ctx, p, auth.ActionUpdate, entity); err != nil {
		return store.Blog{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Blog{}, err
	}

	current, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return store.Blog{}, s.storeErr(ctx, verb, entity, err)
	}

	slug, err := s.claimSlug(ctx, entity, verb, "title", in.Title, id, s.queries.BlogSlugTaken)
	if err != nil {
		return store.Blog{}, err
	}

	now := s.clock()
	publishedAt := stampPublishedAt(current.IsPublished, current.PublishedAt, in.IsPublished, nil, now)
	blog, err := s.queries.UpdateBlog(ctx, in.params(id, slug, publishedAt, now))
	if err != nil {
		return store.Blog{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionUpdated, ID: blog.ID, Slug: blog.Slug, PreviousSlug: renamedFrom(current.Slug, blog.Slug),
		Paths: AffectedPaths(entity, current.Slug, blog.Slug), Visible: blog.IsPublished, Record: blog,
	})
	return blog, nil
}

// DeleteBlog permanently removes the blog with id.
func (s *Service) DeleteBlog(ctx context.Context, p *model.Principal, id string) error {
	const verb = "delete"
	entity := model.EntityBlog

	if err := s.authorize(ctx, p, auth.ActionDelete, entity); err != nil {
		return err
	}

	current, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}
	if err := s.queries.DeleteBlog(ctx, id); err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionDeleted, ID: current.ID, Slug: current.Slug,
		Paths: AffectedPaths(entity, current.Slug),
	})
	return nil
}

// ToggleBlogPublish flips the publish flag of the blog with id.
func (s *Service) ToggleBlogPublish(ctx context.Context, p *model.Principal, id string) (store.Blog, error) {
	const verb = "update"
	entity := model.EntityBlog

	if err := s.authorize(ctx, p, auth.ActionToggle, entity); err != nil {
		return store.Blog{}, err
	}

	current, err := s.queries.GetBlogByID(ctx, id)
	if err != nil {
		return store.Blog{}, s.storeErr(ctx, verb, entity, err)
	}

	now := s.clock()
	published := !current.IsPublished
	blog, err := s.queries.SetBlogPublished(ctx, id, published,
		stampPublishedAt(current.IsPublished, current.PublishedAt, published, nil, now), now)
	if err != nil {
		return store.Blog{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionToggled, Field: "published", ID: blog.ID, Slug: blog.Slug,
		Paths: AffectedPaths(entity, blog.Slug), Visible: blog.IsPublished, Record: blog,
	})
	return blog, nil
}

// ListBlogs lists blog posts. Public scope returns only published posts.
func (s *Service) ListBlogs(ctx context.Context, p *model.Principal, opts ListOptions) (Page[store.Blog], error) {
	return listPage(ctx, s, p, model.EntityBlog, opts, s.queries.ListBlogs, s.queries.CountBlogs)
}

// GetBlogBySlug returns the blog with slug. Unpublished posts are not found
// in public scope.
func (s *Service) GetBlogBySlug(ctx context.Context, p *model.Principal, slug string, scope Scope) (store.Blog, error) {
	return getOne(ctx, s, p, model.EntityBlog, scope, s.queries.GetBlogBySlug, slug, blogVisible)
}

// GetBlog returns the blog with id for the admin surface.
func (s *Service) GetBlog(ctx context.Context, p *model.Principal, id string) (store.Blog, error) {
	return getOne(ctx, s, p, model.EntityBlog, ScopeAdmin, s.queries.GetBlogByID, id, blogVisible)
}

func blogVisible(b store.Blog, _ time.Time) bool { return b.IsPublished }

// renamedFrom returns prev when the slug changed.
func renamedFrom(prev, next string) string {
	if prev == next {
		return ""
	}
	return prev
}
