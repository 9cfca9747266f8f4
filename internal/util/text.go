// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns s in Unicode NFC form with surrounding whitespace
// removed. Composed and decomposed spellings of the same title therefore
// derive the same slug.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// NormalizeList normalises every element of list and drops empty entries.
// A nil or all-empty input yields an empty, non-nil slice.
func NormalizeList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if v := NormalizeText(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
