// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// MaxListLimit caps the page size of list queries.
const MaxListLimit = 200

// ListFilter narrows and orders a content list query.
type ListFilter struct {
	// Category matches the entity's grouping column (category, department
	// or industry). Empty matches all.
	Category string
	// VisibleOnly restricts to rows the public may see.
	VisibleOnly bool
	// Now is the reference time for scheduled visibility. Zero means time.Now().
	Now time.Time
	// From and To bound the entity's date column, inclusive.
	From *time.Time
	To   *time.Time
	// Sort is a key from the entity's sort whitelist; prefix "-" for
	// descending. Unknown keys fall back to the default order.
	Sort   string
	Limit  int
	Offset int
}

func (f ListFilter) now() time.Time {
	if f.Now.IsZero() {
		return time.Now().UTC()
	}
	return f.Now.UTC()
}

// tableLayout describes how an entity table is filtered and ordered.
type tableLayout struct {
	table       string
	categoryCol string
	dateCol     string
	// visible is the predicate for public rows, given the reference time.
	visible     func(now time.Time) sq.Sqlizer
	sorts       map[string]string
	defaultSort []string
}

func publishedVisible(now time.Time) sq.Sqlizer {
	return sq.Eq{"t.is_published": true}
}

func activeVisible(now time.Time) sq.Sqlizer {
	return sq.Eq{"t.is_active": true}
}

// scheduledVisible also hides rows whose publish time has not arrived.
func scheduledVisible(now time.Time) sq.Sqlizer {
	return sq.And{
		sq.Eq{"t.is_published": true},
		sq.NotEq{"t.published_at": nil},
		sq.LtOrEq{"t.published_at": now},
	}
}

// selectBuilder applies f to a SELECT over the layout's table aliased as t,
// joined with users for the author name.
func (s tableLayout) selectBuilder(columns string, f ListFilter) sq.SelectBuilder {
	b := psql.Select(columns + ", COALESCE(u.name, '" + AnonymousAuthor + "')").
		From(s.table + " t").
		LeftJoin("users u ON u.id = t.author_id")
	return s.where(b, f)
}

func (s tableLayout) countBuilder(f ListFilter) sq.SelectBuilder {
	return s.where(psql.Select("COUNT(*)").From(s.table+" t"), f)
}

func (s tableLayout) where(b sq.SelectBuilder, f ListFilter) sq.SelectBuilder {
	if f.Category != "" && s.categoryCol != "" {
		b = b.Where(sq.Eq{"t." + s.categoryCol: f.Category})
	}
	if f.VisibleOnly {
		b = b.Where(s.visible(f.now()))
	}
	if f.From != nil {
		b = b.Where(sq.GtOrEq{"t." + s.dateCol: f.From.UTC()})
	}
	if f.To != nil {
		b = b.Where(sq.LtOrEq{"t." + s.dateCol: f.To.UTC()})
	}
	return b
}

// orderAndPage adds ORDER BY, LIMIT and OFFSET.
func (s tableLayout) orderAndPage(b sq.SelectBuilder, f ListFilter) sq.SelectBuilder {
	b = b.OrderBy(s.orderBy(f.Sort)...)

	limit := f.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	b = b.Limit(uint64(limit))
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}
	return b
}

func (s tableLayout) orderBy(key string) []string {
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	col, ok := s.sorts[key]
	if !ok {
		return s.defaultSort
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	// id breaks ties so paging is stable.
	return []string{"t." + col + dir, "t.id ASC"}
}
