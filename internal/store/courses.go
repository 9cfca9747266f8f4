// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const courseColumns = `t.id, t.slug, t.title, t.description, t.category, t.duration, t.level, t.fee,
	t.highlights, t.image_url, t.is_published, t.published_at, t.author_id, t.created_at, t.updated_at`

var courseList = tableLayout{
	table:       "courses",
	categoryCol: "category",
	dateCol:     "created_at",
	visible:     publishedVisible,
	sorts: map[string]string{
		"title":        "title",
		"level":        "level",
		"published_at": "published_at",
		"created_at":   "created_at",
	},
	defaultSort: []string{"t.title ASC", "t.id ASC"},
}

func scanCourse(row rowScanner) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.Description, &c.Category, &c.Duration, &c.Level, &c.Fee,
		&c.Highlights, &c.ImageURL, &c.IsPublished, &c.PublishedAt, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt,
		&c.AuthorName)
	return c, err
}

// UpsertCourseParams carries the writable columns of a course.
type UpsertCourseParams struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Category    string
	Duration    string
	Level       string
	Fee         string
	Highlights  StringList
	ImageURL    string
	IsPublished bool
	PublishedAt *time.Time
	AuthorID    *string
	Now         time.Time
}

// CreateCourse inserts a course and returns it.
func (q *Queries) CreateCourse(ctx context.Context, arg UpsertCourseParams) (Course, error) {
	_, err := q.db.ExecContext(ctx, `INSERT INTO courses (
		id, slug, title, description, category, duration, level, fee, highlights, image_url,
		is_published, published_at, author_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Slug, arg.Title, arg.Description, arg.Category, arg.Duration, arg.Level, arg.Fee,
		arg.Highlights, arg.ImageURL, arg.IsPublished, arg.PublishedAt, arg.AuthorID, arg.Now, arg.Now)
	if err != nil {
		return Course{}, err
	}
	return q.GetCourseByID(ctx, arg.ID)
}

// UpdateCourse rewrites a course's content and lifecycle columns.
func (q *Queries) UpdateCourse(ctx context.Context, arg UpsertCourseParams) (Course, error) {
	_, err := q.db.ExecContext(ctx, `UPDATE courses SET
		slug = ?, title = ?, description = ?, category = ?, duration = ?, level = ?, fee = ?,
		highlights = ?, image_url = ?, is_published = ?, published_at = ?, updated_at = ?
	WHERE id = ?`,
		arg.Slug, arg.Title, arg.Description, arg.Category, arg.Duration, arg.Level, arg.Fee,
		arg.Highlights, arg.ImageURL, arg.IsPublished, arg.PublishedAt, arg.Now, arg.ID)
	if err != nil {
		return Course{}, err
	}
	return q.GetCourseByID(ctx, arg.ID)
}

// SetCoursePublished updates only the publish flag and timestamp.
func (q *Queries) SetCoursePublished(ctx context.Context, id string, published bool, publishedAt *time.Time, now time.Time) (Course, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE courses SET is_published = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		published, publishedAt, now, id)
	if err != nil {
		return Course{}, err
	}
	return q.GetCourseByID(ctx, id)
}

// DeleteCourse permanently removes a course.
func (q *Queries) DeleteCourse(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	return err
}

// GetCourseByID returns the course with id or sql.ErrNoRows.
func (q *Queries) GetCourseByID(ctx context.Context, id string) (Course, error) {
	return getOne(ctx, q.db, courseList, courseColumns, "t.id", id, scanCourse)
}

// GetCourseBySlug returns the course with slug or sql.ErrNoRows.
func (q *Queries) GetCourseBySlug(ctx context.Context, slug string) (Course, error) {
	return getOne(ctx, q.db, courseList, courseColumns, "t.slug", slug, scanCourse)
}

// CourseSlugTaken reports whether slug is used by a course other than excludeID.
func (q *Queries) CourseSlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	return slugTaken(ctx, q.db, "courses", slug, excludeID)
}

// ListCourses returns courses matching f.
func (q *Queries) ListCourses(ctx context.Context, f ListFilter) ([]Course, error) {
	b := courseList.orderAndPage(courseList.selectBuilder(courseColumns, f), f)
	return queryRows(ctx, q.db, b, scanCourse)
}

// CountCourses counts courses matching f, ignoring paging.
func (q *Queries) CountCourses(ctx context.Context, f ListFilter) (int64, error) {
	return queryCount(ctx, q.db, courseList.countBuilder(f))
}
