// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const blogColumns = `t.id, t.slug, t.title, t.excerpt, t.content, t.category, t.cover_image_url,
	t.is_published, t.published_at, t.author_id, t.created_at, t.updated_at`

var blogList = tableLayout{
	table:       "blogs",
	categoryCol: "category",
	dateCol:     "published_at",
	visible:     publishedVisible,
	sorts: map[string]string{
		"title":        "title",
		"published_at": "published_at",
		"created_at":   "created_at",
		"updated_at":   "updated_at",
	},
	defaultSort: []string{"t.published_at DESC", "t.created_at DESC", "t.id ASC"},
}

func scanBlog(row rowScanner) (Blog, error) {
	var b Blog
	err := row.Scan(&b.ID, &b.Slug, &b.Title, &b.Excerpt, &b.Content, &b.Category, &b.CoverImageURL,
		&b.IsPublished, &b.PublishedAt, &b.AuthorID, &b.CreatedAt, &b.UpdatedAt, &b.AuthorName)
	return b, err
}

// UpsertBlogParams carries the writable columns of a blog.
type UpsertBlogParams struct {
	ID            string
	Slug          string
	Title         string
	Excerpt       string
	Content       string
	Category      string
	CoverImageURL string
	IsPublished   bool
	PublishedAt   *time.Time
	AuthorID      *string
	Now           time.Time
}

// CreateBlog inserts a blog and returns it.
func (q *Queries) CreateBlog(ctx context.Context, arg UpsertBlogParams) (Blog, error) {
	_, err := q.db.ExecContext(ctx, `INSERT INTO blogs (
		id, slug, title, excerpt, content, category, cover_image_url,
		is_published, published_at, author_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Slug, arg.Title, arg.Excerpt, arg.Content, arg.Category, arg.CoverImageURL,
		arg.IsPublished, arg.PublishedAt, arg.AuthorID, arg.Now, arg.Now)
	if err != nil {
		return Blog{}, err
	}
	return q.GetBlogByID(ctx, arg.ID)
}

// UpdateBlog rewrites a blog's content and lifecycle columns. The author is
// left unchanged.
func (q *Queries) UpdateBlog(ctx context.Context, arg UpsertBlogParams) (Blog, error) {
	_, err := q.db.ExecContext(ctx, `UPDATE blogs SET
		slug = ?, title = ?, excerpt = ?, content = ?, category = ?, cover_image_url = ?,
		is_published = ?, published_at = ?, updated_at = ?
	WHERE id = ?`,
		arg.Slug, arg.Title, arg.Excerpt, arg.Content, arg.Category, arg.CoverImageURL,
		arg.IsPublished, arg.PublishedAt, arg.Now, arg.ID)
	if err != nil {
		return Blog{}, err
	}
	return q.GetBlogByID(ctx, arg.ID)
}

// SetBlogPublished updates only the publish flag and timestamp.
func (q *Queries) SetBlogPublished(ctx context.Context, id string, published bool, publishedAt *time.Time, now time.Time) (Blog, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE blogs SET is_published = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		published, publishedAt, now, id)
	if err != nil {
		return Blog{}, err
	}
	return q.GetBlogByID(ctx, id)
}

// DeleteBlog permanently removes a blog.
func (q *Queries) DeleteBlog(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	return err
}

// GetBlogByID returns the blog with id or sql.ErrNoRows.
func (q *Queries) GetBlogByID(ctx context.Context, id string) (Blog, error) {
	return getOne(ctx, q.db, blogList, blogColumns, "t.id", id, scanBlog)
}

// GetBlogBySlug returns the blog with slug or sql.ErrNoRows.
func (q *Queries) GetBlogBySlug(ctx context.Context, slug string) (Blog, error) {
	return getOne(ctx, q.db, blogList, blogColumns, "t.slug", slug, scanBlog)
}

// BlogSlugTaken reports whether slug is used by a blog other than excludeID.
func (q *Queries) BlogSlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	return slugTaken(ctx, q.db, "blogs", slug, excludeID)
}

// ListBlogs returns blogs matching f.
func (q *Queries) ListBlogs(ctx context.Context, f ListFilter) ([]Blog, error) {
	b := blogList.orderAndPage(blogList.selectBuilder(blogColumns, f), f)
	return queryRows(ctx, q.db, b, scanBlog)
}

// CountBlogs counts blogs matching f, ignoring paging.
func (q *Queries) CountBlogs(ctx context.Context, f ListFilter) (int64, error) {
	return queryCount(ctx, q.db, blogList.countBuilder(f))
}
