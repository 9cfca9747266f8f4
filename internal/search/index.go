// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package search maintains a full-text index of publicly visible content.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/hook"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/render"
)

// Limits.
const (
	DefaultLimit   = 20
	MaxLimit       = 100
	MaxQueryLength = 200
)

// Result is one search hit.
type Result struct {
	ID        string              `json:"id"`
	Entity    string              `json:"entity"`
	Title     string              `json:"title"`
	Path      string              `json:"path"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Results is a page of hits.
type Results struct {
	Query string   `json:"query"`
	Total uint64   `json:"total"`
	Hits  []Result `json:"hits"`
}

// Index wraps a Bleve index of Documents.
type Index struct {
	index    bleve.Index
	renderer *render.Renderer
	logger   *slog.Logger
}

// Open opens the index at path, creating it when missing. An empty path
// creates an in-memory index.
func Open(path string, renderer *render.Renderer, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if renderer == nil {
		renderer = render.New()
	}

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, buildIndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	return &Index{index: idx, renderer: renderer, logger: logger.With("service", "search")}, nil
}

// buildIndexMapping stems titles and bodies in English and keeps entity and
// path as exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "en"

	stored := bleve.NewTextFieldMapping()
	stored.Analyzer = "en"
	stored.Store = true
	stored.IncludeTermVectors = true

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	date := bleve.NewDateTimeFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("Title", stored)
	doc.AddFieldMappingsAt("Body", stored)
	doc.AddFieldMappingsAt("Category", text)
	doc.AddFieldMappingsAt("Entity", exact)
	doc.AddFieldMappingsAt("Path", exact)
	doc.AddFieldMappingsAt("UpdatedAt", date)
	doc.AddSubDocumentMapping("ID", bleve.NewDocumentDisabledMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Put adds or replaces a document.
func (i *Index) Put(d Document) error {
	return i.index.Index(d.ID, d)
}

// Delete removes a document.
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// truncateQuery keeps at most MaxQueryLength characters of q.
func truncateQuery(q string) string {
	if utf8.RuneCountInString(q) <= MaxQueryLength {
		return q
	}
	return string([]rune(q)[:MaxQueryLength])
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Search matches q against titles (boosted) and bodies. A non-empty entity
// restricts hits to that entity.
func (i *Index) Search(ctx context.Context, q string, entity model.Entity, limit, offset int) (Results, error) {
	q = truncateQuery(strings.TrimSpace(q))
	out := Results{Query: q, Hits: []Result{}}
	if q == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	title := bleve.NewMatchQuery(q)
	title.SetField("Title")
	title.SetBoost(3)
	title.SetFuzziness(1)
	body := bleve.NewMatchQuery(q)
	body.SetField("Body")

	var qry query.Query = bleve.NewDisjunctionQuery(title, body)
	if entity != "" {
		only := bleve.NewTermQuery(string(entity))
		only.SetField("Entity")
		qry = bleve.NewConjunctionQuery(qry, only)
	}

	req := bleve.NewSearchRequestOptions(qry, limit, offset, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("Body")
	req.Fields = []string{"Title", "Entity", "Path"}

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return out, fmt.Errorf("search: %w", err)
	}

	out.Total = res.Total
	for _, hit := range res.Hits {
		r := Result{ID: hit.ID, Score: hit.Score, Fragments: hit.Fragments}
		r.Title, _ = hit.Fields["Title"].(string)
		r.Entity, _ = hit.Fields["Entity"].(string)
		r.Path, _ = hit.Fields["Path"].(string)
		out.Hits = append(out.Hits, r)
	}
	return out, nil
}

func bleveMatchAll(size int) *bleve.SearchRequest {
	return bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), size, 0, false)
}

// Apply updates the index for one content change: visible rows are
// (re)indexed, anything else is removed.
func (i *Index) Apply(change content.Change) error {
	id := DocID(change.Entity, change.ID)
	if !change.Visible || change.Record == nil {
		return i.Delete(id)
	}
	d, ok := FromRecord(i.renderer, change.Record)
	if !ok {
		return nil
	}
	return i.Put(d)
}

// Subscribe keeps the index current with content changes.
func (i *Index) Subscribe(reg *hook.Registry) {
	reg.Subscribe(hook.ContentChanged, "index-content", "search", 20, func(ctx context.Context, data any) error {
		change, ok := data.(content.Change)
		if !ok {
			return nil
		}
		if err := i.Apply(change); err != nil {
			return fmt.Errorf("index %s: %w", change.EventName(), err)
		}
		return nil
	})
}
