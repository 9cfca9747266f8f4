// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/olegiv/institute-cms/internal/util"
)

// Field length limits.
const (
	MaxTitleLength = 200
	MaxShortLength = 500
	MaxBodyLength  = 100_000
	MaxListItems   = 50
	MaxURLLength   = 2048
)

// fieldCheck accumulates validation failures.
type fieldCheck struct {
	errs []FieldError
}

func (c *fieldCheck) add(field, msg string) {
	c.errs = append(c.errs, FieldError{Field: field, Message: msg})
}

func (c *fieldCheck) required(field, value string) {
	if value == "" {
		c.add(field, titleLabel(field)+" is required")
	}
}

func (c *fieldCheck) maxLen(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		c.add(field, fmt.Sprintf("%s must be at most %d characters", titleLabel(field), max))
	}
}

// url accepts absolute http(s) URLs and site-relative paths.
func (c *fieldCheck) url(field, value string) {
	if value == "" {
		return
	}
	if len(value) > MaxURLLength {
		c.add(field, titleLabel(field)+" is too long")
		return
	}
	if strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//") {
		return
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.add(field, titleLabel(field)+" must be an http(s) URL or a path starting with /")
	}
}

func (c *fieldCheck) email(field, value string) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		c.add(field, titleLabel(field)+" must be a valid email address")
	}
}

func (c *fieldCheck) list(field string, items []string) {
	if len(items) > MaxListItems {
		c.add(field, fmt.Sprintf("%s may have at most %d entries", titleLabel(field), MaxListItems))
	}
	for _, item := range items {
		if utf8.RuneCountInString(item) > MaxShortLength {
			c.add(field, fmt.Sprintf("%s entries must be at most %d characters", titleLabel(field), MaxShortLength))
			return
		}
	}
}

func (c *fieldCheck) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return validation(c.errs...)
}

// titleLabel turns a field name like "cover_image_url" into "Cover image url".
func titleLabel(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clean(s string) string { return util.NormalizeText(s) }
