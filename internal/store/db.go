// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries runs typed statements against the database.
type Queries struct {
	db DBTX
}

// WithTx returns a copy of q that runs inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// psql is the statement builder used for dynamic queries.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type rowScanner interface {
	Scan(dest ...any) error
}

// queryRows runs a built SELECT and scans every row with scan.
func queryRows[T any](ctx context.Context, db DBTX, b sq.Sqlizer, scan func(rowScanner) (T, error)) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// queryCount runs a built COUNT query.
func queryCount(ctx context.Context, db DBTX, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// getOne fetches a single row of the layout's table where col = value.
func getOne[T any](ctx context.Context, db DBTX, layout tableLayout, columns, col, value string, scan func(rowScanner) (T, error)) (T, error) {
	b := layout.selectBuilder(columns, ListFilter{}).Where(col+" = ?", value).Limit(1)
	query, args, err := b.ToSql()
	if err != nil {
		var zero T
		return zero, err
	}
	return scan(db.QueryRowContext(ctx, query, args...))
}

// slugTaken reports whether table has a row with slug whose id differs
// from excludeID. Pass an empty excludeID when creating.
func slugTaken(ctx context.Context, db DBTX, table, slug, excludeID string) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE slug = ? AND id <> ?)`,
		slug, excludeID).Scan(&exists)
	return exists == 1, err
}
