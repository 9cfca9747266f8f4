// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	r := New()

	tests := []struct {
		name     string
		src      string
		contains []string
		absent   []string
	}{
		{
			name:     "heading and emphasis",
			src:      "# Admissions\n\nApply **now**.",
			contains: []string{`<h1 id="admissions">Admissions</h1>`, "<strong>now</strong>"},
		},
		{
			name:     "script dropped",
			src:      "Hello <script>alert(1)</script>",
			absent:   []string{"<script", "alert(1)</script>"},
			contains: []string{"Hello"},
		},
		{
			name:     "javascript link neutralised",
			src:      "[click](javascript:alert(1))",
			absent:   []string{"javascript:"},
		},
		{
			name:     "external link gets nofollow",
			src:      "[site](https://example.com)",
			contains: []string{`href="https://example.com"`, `rel="nofollow noopener"`, `target="_blank"`},
		},
		{
			name:     "gfm table",
			src:      "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name: "empty",
			src:  "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.HTML(tt.src)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("HTML(%q) = %q, missing %q", tt.src, got, want)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(got, bad) {
					t.Errorf("HTML(%q) = %q, must not contain %q", tt.src, got, bad)
				}
			}
			if tt.src == "   " && got != "" {
				t.Errorf("HTML(blank) = %q, want empty", got)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	r := New()
	got := r.PlainText("## Fees & Scholarships\n\n* Merit based\n* Need based")
	want := "Fees & Scholarships Merit based Need based"
	if got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestExcerpt(t *testing.T) {
	r := New()

	if got := r.Excerpt("Short text", 50); got != "Short text" {
		t.Errorf("Excerpt short = %q", got)
	}
	got := r.Excerpt("The quick brown fox jumps over the lazy dog", 18)
	if got != "The quick brown…" {
		t.Errorf("Excerpt = %q, want %q", got, "The quick brown…")
	}
}
