// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Entity identifies one of the content types managed by the CMS.
type Entity string

// Content entities.
const (
	EntityBlog    Entity = "blog"
	EntityCourse  Entity = "course"
	EntityNotice  Entity = "notice"
	EntityFaculty Entity = "faculty"
	EntityEvent   Entity = "event"
	EntityStartup Entity = "startup"
	EntityUser    Entity = "user"
)

// ContentEntities lists the six content entities in display order.
var ContentEntities = []Entity{
	EntityBlog, EntityCourse, EntityNotice, EntityFaculty, EntityEvent, EntityStartup,
}

// Path constants for page routes that render content.
const (
	PathHome = "/"
)

type entityInfo struct {
	label     string // Capitalised singular, used in messages ("Blog not found")
	plural    string // Lowercase plural ("blogs")
	publicURL string // Public list page
	adminURL  string // Admin list page
}

var entities = map[Entity]entityInfo{
	EntityBlog:    {"Blog", "blogs", "/blog", "/admin/blogs"},
	EntityCourse:  {"Course", "courses", "/courses", "/admin/courses"},
	EntityNotice:  {"Notice", "notices", "/notices", "/admin/notices"},
	EntityFaculty: {"Faculty", "faculty", "/faculty", "/admin/faculty"},
	EntityEvent:   {"Event", "events", "/events", "/admin/events"},
	EntityStartup: {"Startup", "startups", "/startups", "/admin/startups"},
	EntityUser:    {"User", "users", "", "/admin/users"},
}

// Label returns the capitalised singular name, e.g. "Blog".
func (e Entity) Label() string {
	if info, ok := entities[e]; ok {
		return info.label
	}
	return string(e)
}

// Plural returns the lowercase plural name, e.g. "blogs".
func (e Entity) Plural() string {
	if info, ok := entities[e]; ok {
		return info.plural
	}
	return string(e) + "s"
}

// ListPath returns the public list page path, e.g. "/blog".
func (e Entity) ListPath() string {
	return entities[e].publicURL
}

// DetailPath returns the public detail page path for the given slug.
func (e Entity) DetailPath(slug string) string {
	base := entities[e].publicURL
	if base == "" || slug == "" {
		return ""
	}
	return base + "/" + slug
}

// AdminPath returns the admin list page path, e.g. "/admin/blogs".
func (e Entity) AdminPath() string {
	return entities[e].adminURL
}

// EventCategory returns the event-log category used for this entity.
func (e Entity) EventCategory() string {
	return string(e)
}
