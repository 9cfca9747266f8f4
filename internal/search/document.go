// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package search

import (
	"strings"
	"time"

	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/render"
	"github.com/olegiv/institute-cms/internal/store"
)

// Document is one publicly visible row in the index.
type Document struct {
	ID        string
	Entity    string
	Title     string
	Body      string
	Category  string
	Path      string
	UpdatedAt time.Time
}

// DocID is the index identifier of a row.
func DocID(entity model.Entity, id string) string {
	return string(entity) + ":" + id
}

func join(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// FromRecord converts a stored row into a Document. It reports false for
// unsupported values.
func FromRecord(r *render.Renderer, record any) (Document, bool) {
	switch v := record.(type) {
	case store.Blog:
		return doc(model.EntityBlog, v.ID, v.Slug, v.Title, v.Category, v.UpdatedAt,
			v.Excerpt, r.PlainText(v.Content)), true
	case store.Course:
		return doc(model.EntityCourse, v.ID, v.Slug, v.Title, v.Category, v.UpdatedAt,
			v.Description, v.Level, v.Duration, strings.Join(v.Highlights, " ")), true
	case store.Notice:
		return doc(model.EntityNotice, v.ID, v.Slug, v.Title, v.Category, v.UpdatedAt,
			r.PlainText(v.Content)), true
	case store.Faculty:
		return doc(model.EntityFaculty, v.ID, v.Slug, v.Name, v.Department, v.UpdatedAt,
			v.Designation, v.Bio, strings.Join(v.Qualifications, " ")), true
	case store.Event:
		return doc(model.EntityEvent, v.ID, v.Slug, v.Title, v.Category, v.UpdatedAt,
			v.Description, v.Location), true
	case store.Startup:
		return doc(model.EntityStartup, v.ID, v.Slug, v.Name, v.Industry, v.UpdatedAt,
			v.Tagline, v.Description, v.Stage, strings.Join(v.Founders, " ")), true
	default:
		return Document{}, false
	}
}

func doc(entity model.Entity, id, slug, title, category string, updated time.Time, body ...string) Document {
	return Document{
		ID:        DocID(entity, id),
		Entity:    string(entity),
		Title:     title,
		Body:      join(body...),
		Category:  category,
		Path:      entity.DetailPath(slug),
		UpdatedAt: updated,
	}
}
