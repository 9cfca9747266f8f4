// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// SeedConfig overrides the default super admin credentials.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func (c SeedConfig) withDefaults() SeedConfig {
	if c.AdminEmail == "" {
		c.AdminEmail = DefaultAdminEmail
	}
	if c.AdminPassword == "" {
		c.AdminPassword = DefaultAdminPassword
	}
	if c.AdminName == "" {
		c.AdminName = DefaultAdminName
	}
	return c
}

// Seed creates the initial SUPER_ADMIN account when the users table is empty.
func Seed(ctx context.Context, db *sql.DB, cfg SeedConfig) error {
	cfg = cfg.withDefaults()
	queries := New(db)

	count, err := queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		slog.Info("users already exist, skipping seed")
		return nil
	}

	if len(cfg.AdminPassword) < auth.MinPasswordLength {
		return fmt.Errorf("admin password must be at least %d characters", auth.MinPasswordLength)
	}

	passwordHash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := queries.CreateUser(ctx, CreateUserParams{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: passwordHash,
		Role:         string(model.RoleSuperAdmin),
		Name:         cfg.AdminName,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	attrs := []any{"id", user.ID, "email", user.Email}
	if cfg.AdminPassword == DefaultAdminPassword {
		attrs = append(attrs, "password", DefaultAdminPassword)
	}
	slog.Info("created default super admin", attrs...)

	return nil
}
