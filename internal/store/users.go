// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const userColumns = `id, email, name, role, password_hash, last_login_at, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUserParams holds the columns of a new user.
type CreateUserParams struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a user and returns it.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `INSERT INTO users (
		id, email, name, role, password_hash, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	RETURNING `+userColumns,
		arg.ID, arg.Email, arg.Name, arg.Role, arg.PasswordHash, arg.CreatedAt.UTC(), arg.CreatedAt.UTC())
	return scanUser(row)
}

// GetUserByID returns the user with id or sql.ErrNoRows.
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByEmail returns the user with email (case-insensitive) or sql.ErrNoRows.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
}

// ListUsers returns all users ordered by name.
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	b := psql.Select(userColumns).From("users").OrderBy("name ASC", "id ASC")
	return queryRows(ctx, q.db, b, scanUser)
}

// CountUsers returns the number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	return queryCount(ctx, q.db, psql.Select("COUNT(*)").From("users"))
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, now.UTC(), id)
	return err
}

// UpdateUserLastLogin stamps the time of a successful sign-in.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// DeleteUser removes a user. Content they authored is kept and reads as anonymous.
func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}
