// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnonymousAuthor is shown when content has no author or the author was deleted.
const AnonymousAuthor = "Anonymous"

// StringList is a list column stored as JSON text.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: unsupported type %T", src)
	}

	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

// User is an account that can sign in to the admin surface.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Blog is a blog post.
type Blog struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	Category      string     `json:"category"`
	CoverImageURL string     `json:"cover_image_url"`
	IsPublished   bool       `json:"is_published"`
	PublishedAt   *time.Time `json:"published_at"`
	AuthorID      *string    `json:"author_id"`
	AuthorName    string     `json:"author_name"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Course is an academic programme offered by the institute.
type Course struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Duration    string     `json:"duration"`
	Level       string     `json:"level"`
	Fee         string     `json:"fee"`
	Highlights  StringList `json:"highlights"`
	ImageURL    string     `json:"image_url"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at"`
	AuthorID    *string    `json:"author_id"`
	AuthorName  string     `json:"author_name"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Notice is an announcement. PublishedAt may lie in the future.
type Notice struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Category      string     `json:"category"`
	AttachmentURL string     `json:"attachment_url"`
	IsPublished   bool       `json:"is_published"`
	PublishedAt   *time.Time `json:"published_at"`
	IsPinned      bool       `json:"is_pinned"`
	AuthorID      *string    `json:"author_id"`
	AuthorName    string     `json:"author_name"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Faculty is a member of teaching staff.
type Faculty struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	Designation    string     `json:"designation"`
	Department     string     `json:"department"`
	Bio            string     `json:"bio"`
	Email          string     `json:"email"`
	PhotoURL       string     `json:"photo_url"`
	Qualifications StringList `json:"qualifications"`
	DisplayOrder   int64      `json:"display_order"`
	IsActive       bool       `json:"is_active"`
	AuthorID       *string    `json:"author_id"`
	AuthorName     string     `json:"author_name"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Event is a scheduled happening such as a workshop or fest.
type Event struct {
	ID              string     `json:"id"`
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Location        string     `json:"location"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	RegistrationURL string     `json:"registration_url"`
	ImageURL        string     `json:"image_url"`
	IsPublished     bool       `json:"is_published"`
	PublishedAt     *time.Time `json:"published_at"`
	AuthorID        *string    `json:"author_id"`
	AuthorName      string     `json:"author_name"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Startup is a venture incubated at the institute.
type Startup struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Tagline     string     `json:"tagline"`
	Description string     `json:"description"`
	Industry    string     `json:"industry"`
	Stage       string     `json:"stage"`
	Founders    StringList `json:"founders"`
	WebsiteURL  string     `json:"website_url"`
	LogoURL     string     `json:"logo_url"`
	FoundedYear int64      `json:"founded_year"`
	IsActive    bool       `json:"is_active"`
	AuthorID    *string    `json:"author_id"`
	AuthorName  string     `json:"author_name"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LogEntry is a row of the audit/event log.
type LogEntry struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	UserID    *string   `json:"user_id"`
	Metadata  string    `json:"metadata"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookDelivery records one attempt to deliver an event to an endpoint.
type WebhookDelivery struct {
	ID           int64      `json:"id"`
	Endpoint     string     `json:"endpoint"`
	Event        string     `json:"event"`
	Payload      string     `json:"payload"`
	Status       string     `json:"status"`
	Attempts     int64      `json:"attempts"`
	ResponseCode int64      `json:"response_code"`
	ResponseBody string     `json:"response_body"`
	ErrorMessage string     `json:"error_message"`
	NextRetryAt  *time.Time `json:"next_retry_at"`
	DeliveredAt  *time.Time `json:"delivered_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
