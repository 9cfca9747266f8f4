// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const facultyColumns = `t.id, t.slug, t.name, t.designation, t.department, t.bio, t.email, t.photo_url,
	t.qualifications, t.display_order, t.is_active, t.author_id, t.created_at, t.updated_at`

var facultyList = tableLayout{
	table:       "faculty",
	categoryCol: "department",
	dateCol:     "created_at",
	visible:     activeVisible,
	sorts: map[string]string{
		"name":          "name",
		"department":    "department",
		"display_order": "display_order",
		"created_at":    "created_at",
	},
	defaultSort: []string{"t.display_order ASC", "t.name ASC", "t.id ASC"},
}

func scanFaculty(row rowScanner) (Faculty, error) {
	var f Faculty
	err := row.Scan(&f.ID, &f.Slug, &f.Name, &f.Designation, &f.Department, &f.Bio, &f.Email, &f.PhotoURL,
		&f.Qualifications, &f.DisplayOrder, &f.IsActive, &f.AuthorID, &f.CreatedAt, &f.UpdatedAt, &f.AuthorName)
	return f, err
}

// UpsertFacultyParams carries the writable columns of a faculty member.
type UpsertFacultyParams struct {
	ID             string
	Slug           string
	Name           string
	Designation    string
	Department     string
	Bio            string
	Email          string
	PhotoURL       string
	Qualifications StringList
	DisplayOrder   int64
	IsActive       bool
	AuthorID       *string
	Now            time.Time
}

// CreateFaculty inserts a faculty member and returns it.
func (q *Queries) CreateFaculty(ctx context.Context, arg UpsertFacultyParams) (Faculty, error) {
	_, err := q.db.ExecContext(ctx, `INSERT INTO faculty (
		id, slug, name, designation, department, bio, email, photo_url,
		qualifications, display_order, is_active, author_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Slug, arg.Name, arg.Designation, arg.Department, arg.Bio, arg.Email, arg.PhotoURL,
		arg.Qualifications, arg.DisplayOrder, arg.IsActive, arg.AuthorID, arg.Now, arg.Now)
	if err != nil {
		return Faculty{}, err
	}
	return q.GetFacultyByID(ctx, arg.ID)
}

// UpdateFaculty rewrites a faculty member's profile and active flag.
func (q *Queries) UpdateFaculty(ctx context.Context, arg UpsertFacultyParams) (Faculty, error) {
	_, err := q.db.ExecContext(ctx, `UPDATE faculty SET
		slug = ?, name = ?, designation = ?, department = ?, bio = ?, email = ?, photo_url = ?,
		qualifications = ?, display_order = ?, is_active = ?, updated_at = ?
	WHERE id = ?`,
		arg.Slug, arg.Name, arg.Designation, arg.Department, arg.Bio, arg.Email, arg.PhotoURL,
		arg.Qualifications, arg.DisplayOrder, arg.IsActive, arg.Now, arg.ID)
	if err != nil {
		return Faculty{}, err
	}
	return q.GetFacultyByID(ctx, arg.ID)
}

// SetFacultyActive updates only the active flag.
func (q *Queries) SetFacultyActive(ctx context.Context, id string, active bool, now time.Time) (Faculty, error) {
	_, err := q.db.ExecContext(ctx,
		`UPDATE faculty SET is_active = ?, updated_at = ? WHERE id = ?`, active, now, id)
	if err != nil {
		return Faculty{}, err
	}
	return q.GetFacultyByID(ctx, id)
}

// DeleteFaculty permanently removes a faculty member.
func (q *Queries) DeleteFaculty(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM faculty WHERE id = ?`, id)
	return err
}

// GetFacultyByID returns the faculty member with id or sql.ErrNoRows.
func (q *Queries) GetFacultyByID(ctx context.Context, id string) (Faculty, error) {
	return getOne(ctx, q.db, facultyList, facultyColumns, "t.id", id, scanFaculty)
}

// GetFacultyBySlug returns the faculty member with slug or sql.ErrNoRows.
func (q *Queries) GetFacultyBySlug(ctx context.Context, slug string) (Faculty, error) {
	return getOne(ctx, q.db, facultyList, facultyColumns, "t.slug", slug, scanFaculty)
}

// FacultySlugTaken reports whether slug is used by a faculty member other than excludeID.
func (q *Queries) FacultySlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	return slugTaken(ctx, q.db, "faculty", slug, excludeID)
}

// ListFaculty returns faculty members matching f.
func (q *Queries) ListFaculty(ctx context.Context, f ListFilter) ([]Faculty, error) {
	b := facultyList.orderAndPage(facultyList.selectBuilder(facultyColumns, f), f)
	return queryRows(ctx, q.db, b, scanFaculty)
}

// CountFaculty counts faculty members matching f, ignoring paging.
func (q *Queries) CountFaculty(ctx context.Context, f ListFilter) (int64, error) {
	return queryCount(ctx, q.db, facultyList.countBuilder(f))
}
