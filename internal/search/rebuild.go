// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/institute-cms/internal/store"
)

type pager[T any] func(ctx context.Context, f store.ListFilter) ([]T, error)

// collect appends every publicly visible row returned by list to docs.
func collect[T any](ctx context.Context, i *Index, now time.Time, list pager[T], docs []Document) ([]Document, error) {
	f := store.ListFilter{VisibleOnly: true, Now: now, Limit: store.MaxListLimit}
	for {
		rows, err := list(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if d, ok := FromRecord(i.renderer, row); ok {
				docs = append(docs, d)
			}
		}
		if len(rows) < f.Limit {
			return docs, nil
		}
		f.Offset += f.Limit
	}
}

// Rebuild replaces the index contents with every publicly visible row in
// the database. It returns the number of documents indexed.
func (i *Index) Rebuild(ctx context.Context, q *store.Queries, now time.Time) (int, error) {
	now = now.UTC()
	docs := make([]Document, 0, 64)
	var err error

	if docs, err = collect(ctx, i, now, q.ListBlogs, docs); err != nil {
		return 0, fmt.Errorf("rebuild blogs: %w", err)
	}
	if docs, err = collect(ctx, i, now, q.ListCourses, docs); err != nil {
		return 0, fmt.Errorf("rebuild courses: %w", err)
	}
	if docs, err = collect(ctx, i, now, q.ListNotices, docs); err != nil {
		return 0, fmt.Errorf("rebuild notices: %w", err)
	}
	if docs, err = collect(ctx, i, now, q.ListFaculty, docs); err != nil {
		return 0, fmt.Errorf("rebuild faculty: %w", err)
	}
	if docs, err = collect(ctx, i, now, q.ListEvents, docs); err != nil {
		return 0, fmt.Errorf("rebuild events: %w", err)
	}
	if docs, err = collect(ctx, i, now, q.ListStartups, docs); err != nil {
		return 0, fmt.Errorf("rebuild startups: %w", err)
	}

	keep := make(map[string]bool, len(docs))
	batch := i.index.NewBatch()
	for _, d := range docs {
		keep[d.ID] = true
		if err := batch.Index(d.ID, d); err != nil {
			return 0, fmt.Errorf("batch index %s: %w", d.ID, err)
		}
	}

	stale, err := i.staleIDs(ctx, keep)
	if err != nil {
		return 0, err
	}
	for _, id := range stale {
		batch.Delete(id)
	}

	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	i.logger.InfoContext(ctx, "search index rebuilt", "documents", len(docs), "removed", len(stale))
	return len(docs), nil
}

// staleIDs lists indexed documents absent from keep.
func (i *Index) staleIDs(ctx context.Context, keep map[string]bool) ([]string, error) {
	count, err := i.index.DocCount()
	if err != nil || count == 0 {
		return nil, err
	}

	req := bleveMatchAll(int(count))
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list indexed documents: %w", err)
	}

	var stale []string
	for _, hit := range res.Hits {
		if !keep[hit.ID] {
			stale = append(stale, hit.ID)
		}
	}
	return stale, nil
}
