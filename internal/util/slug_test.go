// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple title",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "punctuation and year",
			input:    "Hello, World! 2025",
			expected: "hello-world-2025",
		},
		{
			name:     "with numbers",
			input:    "Course 101",
			expected: "course-101",
		},
		{
			name:     "accents are not transliterated",
			input:    "Café résumé",
			expected: "caf-r-sum",
		},
		{
			name:     "umlauts collapse to hyphens",
			input:    "Über München",
			expected: "ber-m-nchen",
		},
		{
			name:     "with multiple spaces",
			input:    "Hello   World",
			expected: "hello-world",
		},
		{
			name:     "existing hyphens",
			input:    "Hello - World",
			expected: "hello-world",
		},
		{
			name:     "leading and trailing noise",
			input:    "  --Hello World!!  ",
			expected: "hello-world",
		},
		{
			name:     "all special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
		{
			name:     "non-latin script",
			input:    "日本語タイトル",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "mixed case",
			input:    "HeLLo WoRLd",
			expected: "hello-world",
		},
		{
			name:     "underscores and dots",
			input:    "intro_to.go",
			expected: "intro-to-go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DeriveSlug(tt.input)
			if result != tt.expected {
				t.Errorf("DeriveSlug(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDeriveSlug_Properties(t *testing.T) {
	inputs := []string{
		"",
		"-",
		"a",
		"A--B",
		"  spaced  out  ",
		"Annual Tech Fest 2025: Registrations Open!",
		"Ünïcödé Tïtlé",
		"Курс программирования",
		"tab\tand\nnewline",
		"100% Placement / Internship",
		"---already-a-slug---",
		"emoji 🚀 launch",
		strings.Repeat("long title ", 50),
	}

	for _, in := range inputs {
		got := DeriveSlug(in)
		if got != "" && !IsValidSlug(got) {
			t.Errorf("DeriveSlug(%q) = %q is not a valid slug", in, got)
		}
		if again := DeriveSlug(got); again != got {
			t.Errorf("DeriveSlug not idempotent for %q: %q then %q", in, got, again)
		}
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid simple slug", "hello-world", true},
		{"valid slug with numbers", "page-123", true},
		{"valid single word", "hello", true},
		{"valid numbers only", "123", true},
		{"invalid - empty", "", false},
		{"invalid - uppercase", "Hello-World", false},
		{"invalid - spaces", "hello world", false},
		{"invalid - special chars", "hello!world", false},
		{"invalid - starts with hyphen", "-hello", false},
		{"invalid - ends with hyphen", "hello-", false},
		{"invalid - consecutive hyphens", "hello--world", false},
		{"invalid - non-ascii", "héllo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidSlug(tt.input)
			if result != tt.expected {
				t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}
