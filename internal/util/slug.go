// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose helpers: URL slug derivation and
// validation, input text normalisation and outbound URL checks.
package util

import (
	"strings"
)

// DeriveSlug converts a title or name into a URL slug.
//
// The input is lowercased, every maximal run of characters outside [a-z0-9]
// becomes a single hyphen, and leading and trailing hyphens are removed.
// Non-ASCII letters are not transliterated, so "Über" yields "ber".
// The result may be empty; callers decide how to handle that.
func DeriveSlug(s string) string {
	lower := strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(lower))

	pendingHyphen := false
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if isSlugChar(c) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteByte(c)
			continue
		}
		pendingHyphen = true
	}

	return b.String()
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !isSlugChar(s[i]) && s[i] != '-' {
			return false
		}
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	return !strings.Contains(s, "--")
}

func isSlugChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
