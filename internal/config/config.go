// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"INSTITUTE_DB_PATH" envDefault:"./data/institute.db"`
	SessionSecret string `env:"INSTITUTE_SESSION_SECRET,required"`
	ServerHost    string `env:"INSTITUTE_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"INSTITUTE_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"INSTITUTE_ENV" envDefault:"development"`
	LogLevel      string `env:"INSTITUTE_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"INSTITUTE_REDIS_URL"`                           // Optional Redis URL for distributed caching
	CachePrefix  string `env:"INSTITUTE_CACHE_PREFIX" envDefault:"institute:"` // Redis key prefix
	CacheTTL     int    `env:"INSTITUTE_CACHE_TTL" envDefault:"3600"`          // Default cache TTL in seconds
	CacheMaxSize int    `env:"INSTITUTE_CACHE_MAX_SIZE" envDefault:"10000"`    // Max memory cache entries

	// SearchIndexPath is the on-disk bleve index; empty keeps it in memory.
	SearchIndexPath string `env:"INSTITUTE_SEARCH_INDEX_PATH"`

	// Webhook configuration
	WebhookURLs   []string `env:"INSTITUTE_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret string   `env:"INSTITUTE_WEBHOOK_SECRET"`

	// Seeding configuration
	DoSeed        bool   `env:"INSTITUTE_DO_SEED" envDefault:"false"`
	DemoMode      bool   `env:"INSTITUTE_DEMO_MODE" envDefault:"false"`
	AdminEmail    string `env:"INSTITUTE_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"INSTITUTE_ADMIN_PASSWORD" envDefault:"changeme"`

	// Retention in days; 0 keeps rows forever.
	EventRetentionDays   int `env:"INSTITUTE_EVENT_RETENTION_DAYS" envDefault:"90"`
	WebhookRetentionDays int `env:"INSTITUTE_WEBHOOK_RETENTION_DAYS" envDefault:"30"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// WebhooksEnabled reports whether any webhook endpoint is configured.
func (c Config) WebhooksEnabled() bool {
	return len(c.WebhookURLs) > 0
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// LoadDotEnv reads variables from the given .env files into the process
// environment without overriding values already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("INSTITUTE_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, errors.New("INSTITUTE_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if cfg.EventRetentionDays < 0 || cfg.WebhookRetentionDays < 0 {
		return nil, errors.New("retention days must not be negative")
	}

	if !cfg.IsDevelopment() && cfg.DoSeed && cfg.AdminPassword == "changeme" {
		slog.Warn("seeding the super admin with the default password outside development; " +
			"set INSTITUTE_ADMIN_PASSWORD")
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("INSTITUTE_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
