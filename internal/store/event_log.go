// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// CreateLogEntryParams holds the columns of a new event log row.
type CreateLogEntryParams struct {
	Level     string
	Category  string
	Message   string
	UserID    *string
	Metadata  string
	IPAddress string
	CreatedAt time.Time
}

// CreateLogEntry appends a row to the event log.
func (q *Queries) CreateLogEntry(ctx context.Context, arg CreateLogEntryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO event_log (
		level, category, message, user_id, metadata, ip_address, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.IPAddress, arg.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LogFilter narrows an event log listing.
type LogFilter struct {
	Level    string
	Category string
	Limit    int
	Offset   int
}

// ListLogEntries returns event log rows, newest first.
func (q *Queries) ListLogEntries(ctx context.Context, f LogFilter) ([]LogEntry, error) {
	b := psql.Select("id, level, category, message, user_id, metadata, ip_address, created_at").
		From("event_log").
		OrderBy("created_at DESC", "id DESC")
	if f.Level != "" {
		b = b.Where(sq.Eq{"level": f.Level})
	}
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	limit := f.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	b = b.Limit(uint64(limit))
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}

	return queryRows(ctx, q.db, b, func(row rowScanner) (LogEntry, error) {
		var e LogEntry
		err := row.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.IPAddress, &e.CreatedAt)
		return e, err
	})
}

// DeleteLogEntriesBefore removes rows created before cutoff and returns how many went.
func (q *Queries) DeleteLogEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM event_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
