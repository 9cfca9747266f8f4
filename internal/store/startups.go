// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const startupColumns = `t.id, t.slug, t.name, t.tagline, t.description, t.industry, t.stage, t.founders,
	t.website_url, t.logo_url, t.founded_year, t.is_active, t.author_id, t.created_at, t.updated_at`

var startupList = tableLayout{
	table:       "startups",
	categoryCol: "industry",
	dateCol:     "created_at",
	visible:     activeVisible,
	sorts: map[string]string{
		"name":         "name",
		"industry":     "industry",
		"stage":        "stage",
		"founded_year": "founded_year",
		"created_at":   "created_at",
	},
	defaultSort: []string{"t.name ASC", "t.id ASC"},
}

func scanStartup(row rowScanner) (Startup, error) {
	var s Startup
	err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.Tagline, &s.Description, &s.Industry, &s.Stage, &s.Founders,
		&s.WebsiteURL, &s.LogoURL, &s.FoundedYear, &s.IsActive, &s.AuthorID, &s.CreatedAt, &s.UpdatedAt,
		&s.AuthorName)
	return s, err
}

// UpsertStartupParams carries the writable columns of a startup.
type UpsertStartupParams struct {
	ID          string
	Slug        string
	Name        string
	Tagline     string
	Description string
	Industry    string
	Stage       string
	Founders    StringList
	WebsiteURL  string
	LogoURL     string
	FoundedYear int64
	IsActive    bool
	AuthorID    *string
	Now         time.Time
}

// CreateStartup inserts a startup and returns it.
func (q *Queries) CreateStartup(ctx context.Context, arg UpsertStartupParams) (Startup, error) {
	_, err := q.db.ExecContext(ctx, `INSERT INTO startups (
		id, slug, name, tagline, description, industry, stage, founders,
		website_url, logo_url, founded_year, is_active, author_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Slug, arg.Name, arg.Tagline, arg.Description, arg.Industry, arg.Stage, arg.Founders,
		arg.WebsiteURL, arg.LogoURL, arg.FoundedYear, arg.IsActive, arg.AuthorID, arg.Now, arg.Now)
	if err != nil {
		return Startup{}, err
	}
	return q.GetStartupByID(ctx, arg.ID)
}

// UpdateStartup rewrites a startup's profile and active flag.
func (q *Queries) UpdateStartup(ctx context.Context, arg UpsertStartupParams) (Startup, error) {
	_, err := q.db.ExecContext(ctx, `UPDATE startups SET
		slug = ?, name = ?, tagline = ?, description = ?, industry = ?, stage = ?, founders = ?,
		website_url = ?, logo_url = ?, founded_year = ?, is_active = ?, updated_at = ?
	WHERE id = ?`,
		arg.Slug, arg.Name, arg.Tagline, arg.Description, arg.Industry, arg.Stage, arg.Founders,
		arg.WebsiteURL, arg.LogoURL, arg.FoundedYear, arg.IsActive, arg.Now, arg.ID)
	if err != nil {
		return Startup{}, err
	}
	return q.GetStartupByID(ctx, arg.ID)
}

// DeleteStartup permanently removes a startup.
func (q *Queries) DeleteStartup(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM startups WHERE id = ?`, id)
	return err
}

// GetStartupByID returns the startup with id or sql.ErrNoRows.
func (q *Queries) GetStartupByID(ctx context.Context, id string) (Startup, error) {
	return getOne(ctx, q.db, startupList, startupColumns, "t.id", id, scanStartup)
}

// GetStartupBySlug returns the startup with slug or sql.ErrNoRows.
func (q *Queries) GetStartupBySlug(ctx context.Context, slug string) (Startup, error) {
	return getOne(ctx, q.db, startupList, startupColumns, "t.slug", slug, scanStartup)
}

// StartupSlugTaken reports whether slug is used by a startup other than excludeID.
func (q *Queries) StartupSlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	return slugTaken(ctx, q.db, "startups", slug, excludeID)
}

// ListStartups returns startups matching f.
func (q *Queries) ListStartups(ctx context.Context, f ListFilter) ([]Startup, error) {
	b := startupList.orderAndPage(startupList.selectBuilder(startupColumns, f), f)
	return queryRows(ctx, q.db, b, scanStartup)
}

// CountStartups counts startups matching f, ignoring paging.
func (q *Queries) CountStartups(ctx context.Context, f ListFilter) (int64, error) {
	return queryCount(ctx, q.db, startupList.countBuilder(f))
}
