// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render converts stored markdown bodies into sanitised HTML and
// plain text.
package render

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// New creates a Renderer with GitHub-flavoured markdown and a UGC
// sanitisation policy.
func New() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: policy,
		strict: bluemonday.StrictPolicy(),
	}
}

// HTML renders src as sanitised HTML. Raw HTML in src is dropped by the
// markdown renderer and anything unsafe left is removed by the policy.
func (r *Renderer) HTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return r.policy.Sanitize(html.EscapeString(src))
	}
	return r.policy.Sanitize(buf.String())
}

// PlainText renders src and strips all markup, collapsing whitespace.
func (r *Renderer) PlainText(src string) string {
	text := html.UnescapeString(r.strict.Sanitize(r.HTML(src)))
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns at most n runes of the plain text of src, cut at a word
// boundary and suffixed with an ellipsis when shortened.
func (r *Renderer) Excerpt(src string, n int) string {
	text := r.PlainText(src)
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
