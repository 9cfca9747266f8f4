// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const noticeColumns = `t.id, t.slug, t.title, t.content, t.category, t.attachment_url,
	t.is_published, t.published_at, t.is_pinned, t.author_id, t.created_at, t.updated_at`

var noticeList = tableLayout{
	table:       "notices",
	categoryCol: "category",
	dateCol:     "published_at",
	visible:     scheduledVisible,
	sorts: map[string]string{
		"title":        "title",
		"published_at": "published_at",
		"created_at":   "created_at",
	},
	defaultSort: []string{"t.is_pinned DESC", "t.published_at DESC", "t.created_at DESC", "t.id ASC"},
}

func scanNotice(row rowScanner) (Notice, error) {
	var n Notice
	err := row.Scan(&n.ID, &n.Slug, &n.Title, &n.Content, &n.Category, &n.AttachmentURL,
		&n.IsPublished, &n.PublishedAt, &n.IsPinned, &n.AuthorID, &n.CreatedAt, &n.UpdatedAt, &n.AuthorName)
	return n, err
}

// UpsertNoticeParams carries the writable columns of a notice.
type UpsertNoticeParams struct {
	ID            string
	Slug          string
	Title         string
	Content       string
	Category      string
	AttachmentURL string
	IsPublished   bool
	PublishedAt   *time.Time
	IsPinned      bool
	AuthorID      *string
	Now           time.Time
}

// CreateNotice inserts a notice and returns it.
func (q *Queries) CreateNotice(ctx context.Context, arg UpsertNoticeParams) (Notice, error) {
	_, err := q.db.ExecContext(ctx, `INSERT INTO notices (
		id, slug, title, content, category, attachment_url,
		is_published, published_at, is_pinned, author_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Slug, arg.Title, arg.Content, arg.Category, arg.AttachmentURL,
		arg.IsPublished, arg.PublishedAt, arg.IsPinned, arg.AuthorID, arg.Now, arg.Now)
	if err != nil {
		return Notice{}, err
	}
	return q.GetNoticeByID(ctx, arg.ID)
}

// UpdateNotice rewrites a notice's content and lifecycle columns.
func (q *Queries) UpdateNotice(ctx context.Context, arg UpsertNoticeParams) (Notice, error) {
	_, err := q.db.ExecContext(ctx, `UPDATE notices SET
		slug = ?, title = ?, content = ?, category = ?, attachment_url = ?,
		is_published = ?, published_at = ?, is_pinned = ?, updated_at = ?
	WHERE id = ?`,
		arg.Slug, arg.Title, arg.Content, arg.Category, arg.AttachmentURL,
		arg.IsPublished, arg.PublishedAt, arg.IsPinned, arg.Now, arg.ID)
	if err != nil {
		return Notice{}, err
	}
	return q.GetNoticeByID(ctx, arg.ID)
}

// SetNoticePublished updates only the publish flag and timestamp.
func (q *Queries) SetNoticePublished(ctx context.Context, id string, published bool, publishedAt *time.Time, now time.Time) (Notice, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE notices SET is_published = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		published, publishedAt, now, id)
	if err != nil {
		return Notice{}, err
	}
	return q.GetNoticeByID(ctx, id)
}

// SetNoticePinned updates only the pin flag.
func (q *Queries) SetNoticePinned(ctx context.Context, id string, pinned bool, now time.Time) (Notice, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE notices SET is_pinned = ?, updated_at = ? WHERE id = ?`, pinned, now, id)
	if err != nil {
		return Notice{}, err
	}
	return q.GetNoticeByID(ctx, id)
}

// DeleteNotice permanently removes a notice.
func (q *Queries) DeleteNotice(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id)
	return err
}

// GetNoticeByID returns the notice with id or sql.ErrNoRows.
func (q *Queries) GetNoticeByID(ctx context.Context, id string) (Notice, error) {
	return getOne(ctx, q.db, noticeList, noticeColumns, "t.id", id, scanNotice)
}

// GetNoticeBySlug returns the notice with slug or sql.ErrNoRows.
func (q *Queries) GetNoticeBySlug(ctx context.Context, slug string) (Notice, error) {
	return getOne(ctx, q.db, noticeList, noticeColumns, "t.slug", slug, scanNotice)
}

// NoticeSlugTaken reports whether slug is used by a notice other than excludeID.
func (q *Queries) NoticeSlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	return slugTaken(ctx, q.db, "notices", slug, excludeID)
}

// ListNotices returns notices matching f. Pinned notices sort first by default.
func (q *Queries) ListNotices(ctx context.Context, f ListFilter) ([]Notice, error) {
	b := noticeList.orderAndPage(noticeList.selectBuilder(noticeColumns, f), f)
	return queryRows(ctx, q.db, b, scanNotice)
}

// CountNotices counts notices matching f, ignoring paging.
func (q *Queries) CountNotices(ctx context.Context, f ListFilter) (int64, error) {
	return queryCount(ctx, q.db, noticeList.countBuilder(f))
}

// ListNoticesGoingLive returns published notices whose publish time falls
// in (after, until].
func (q *Queries) ListNoticesGoingLive(ctx context.Context, after, until time.Time) ([]Notice, error) {
	b := noticeList.selectBuilder(noticeColumns, ListFilter{}).
		Where("t.is_published = 1").
		Where("t.published_at > ?", after.UTC()).
		Where("t.published_at <= ?", until.UTC()).
		OrderBy("t.published_at ASC")
	return queryRows(ctx, q.db, b, scanNotice)
}
