// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/institute-cms/internal/content"
	"github.com/olegiv/institute-cms/internal/middleware"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/render"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/util"
)

// resource wires one content entity's service operations to HTTP. T is the
// stored row and In the create/update body.
type resource[T, In any] struct {
	entity model.Entity

	create func(ctx context.Context, p *model.Principal, in In) (T, error)
	update func(ctx context.Context, p *model.Principal, id string, in In) (T, error)
	remove func(ctx context.Context, p *model.Principal, id string) error
	get    func(ctx context.Context, p *model.Principal, id string) (T, error)
	list   func(ctx context.Context, p *model.Principal, opts content.ListOptions) (content.Page[T], error)
	bySlug func(ctx context.Context, p *model.Principal, slug string, scope content.Scope) (T, error)

	// toggles maps a route segment such as "publish" to its operation.
	toggles map[string]func(ctx context.Context, p *model.Principal, id string) (T, error)

	// view decorates a row for the public detail page.
	view func(T) any
}

// mountAdmin registers the admin routes under the entity's admin path.
// cacheList wraps the list GET.
func (res *resource[T, In]) mountAdmin(r chi.Router, cacheList func(http.Handler) http.Handler) {
	r.Route(res.entity.AdminPath(), func(r chi.Router) {
		r.With(cacheList).Get("/", res.adminList)
		r.Post("/", res.handleCreate)
		r.Get("/{id}", res.adminGet)
		r.Put("/{id}", res.handleUpdate)
		r.Delete("/{id}", res.handleDelete)
		for name, toggle := range res.toggles {
			r.Post("/{id}/"+name, res.handleToggle(toggle))
		}
	})
}

// mountPublic registers the public list and detail pages.
func (res *resource[T, In]) mountPublic(r chi.Router) {
	r.Get(res.entity.ListPath(), res.publicList)
	r.Get(res.entity.ListPath()+"/{slug}", res.publicDetail)
}

func (res *resource[T, In]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in In
	if !decodeJSON(w, r, &in) {
		return
	}
	row, err := res.create(r.Context(), principal(r), in)
	writeResult(w, r, http.StatusCreated, row, err)
}

func (res *resource[T, In]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in In
	if !decodeJSON(w, r, &in) {
		return
	}
	row, err := res.update(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	writeResult(w, r, http.StatusOK, row, err)
}

func (res *resource[T, In]) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := res.remove(r.Context(), principal(r), chi.URLParam(r, "id"))
	result := content.NewDeleteResult(err)
	if err != nil {
		writeJSON(w, statusFor(r, err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (res *resource[T, In]) handleToggle(toggle func(context.Context, *model.Principal, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := toggle(r.Context(), principal(r), chi.URLParam(r, "id"))
		writeResult(w, r, http.StatusOK, row, err)
	}
}

func (res *resource[T, In]) adminList(w http.ResponseWriter, r *http.Request) {
	page, err := res.list(r.Context(), principal(r), parseListOptions(r, content.ScopeAdmin))
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (res *resource[T, In]) adminGet(w http.ResponseWriter, r *http.Request) {
	row, err := res.get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (res *resource[T, In]) publicList(w http.ResponseWriter, r *http.Request) {
	page, err := res.list(r.Context(), principal(r), parseListOptions(r, content.ScopePublic))
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (res *resource[T, In]) publicDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !util.IsValidSlug(slug) {
		writeError(w, http.StatusNotFound, res.entity.Label()+" not found")
		return
	}
	row, err := res.bySlug(r.Context(), principal(r), slug, content.ScopePublic)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	if res.view != nil {
		writeJSON(w, http.StatusOK, res.view(row))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// contentRoutes is implemented by every resource regardless of its types.
type contentRoutes interface {
	mountAdmin(r chi.Router, cacheList func(http.Handler) http.Handler)
	mountPublic(r chi.Router)
}

// Public detail views carry the markdown body rendered as sanitised HTML.
type (
	blogView struct {
		store.Blog
		ContentHTML string `json:"content_html"`
	}
	courseView struct {
		store.Course
		DescriptionHTML string `json:"description_html"`
	}
	noticeView struct {
		store.Notice
		ContentHTML string `json:"content_html"`
	}
	facultyView struct {
		store.Faculty
		BioHTML string `json:"bio_html"`
	}
	eventView struct {
		store.Event
		DescriptionHTML string `json:"description_html"`
	}
	startupView struct {
		store.Startup
		DescriptionHTML string `json:"description_html"`
	}
)

// resources returns the routes of the six content entities.
func resources(svc *content.Service, md *render.Renderer) []contentRoutes {
	return []contentRoutes{
		&resource[store.Blog, content.BlogInput]{
			entity: model.EntityBlog,
			create: svc.CreateBlog, update: svc.UpdateBlog, remove: svc.DeleteBlog,
			get: svc.GetBlog, list: svc.ListBlogs, bySlug: svc.GetBlogBySlug,
			toggles: map[string]func(context.Context, *model.Principal, string) (store.Blog, error){
				"publish": svc.ToggleBlogPublish,
			},
			view: func(b store.Blog) any { return blogView{b, md.HTML(b.Content)} },
		},
		&resource[store.Course, content.CourseInput]{
			entity: model.EntityCourse,
			create: svc.CreateCourse, update: svc.UpdateCourse, remove: svc.DeleteCourse,
			get: svc.GetCourse, list: svc.ListCourses, bySlug: svc.GetCourseBySlug,
			toggles: map[string]func(context.Context, *model.Principal, string) (store.Course, error){
				"publish": svc.ToggleCoursePublish,
			},
			view: func(c store.Course) any { return courseView{c, md.HTML(c.Description)} },
		},
		&resource[store.Notice, content.NoticeInput]{
			entity: model.EntityNotice,
			create: svc.CreateNotice, update: svc.UpdateNotice, remove: svc.DeleteNotice,
			get: svc.GetNotice, list: svc.ListNotices, bySlug: svc.GetNoticeBySlug,
			toggles: map[string]func(context.Context, *model.Principal, string) (store.Notice, error){
				"publish": svc.ToggleNoticePublish,
				"pin":     svc.ToggleNoticePin,
			},
			view: func(n store.Notice) any { return noticeView{n, md.HTML(n.Content)} },
		},
		&resource[store.Faculty, content.FacultyInput]{
			entity: model.EntityFaculty,
			create: svc.CreateFaculty, update: svc.UpdateFaculty, remove: svc.DeleteFaculty,
			get: svc.GetFaculty, list: svc.ListFaculty, bySlug: svc.GetFacultyBySlug,
			toggles: map[string]func(context.Context, *model.Principal, string) (store.Faculty, error){
				"active": svc.ToggleFacultyActive,
			},
			view: func(f store.Faculty) any { return facultyView{f, md.HTML(f.Bio)} },
		},
		&resource[store.Event, content.EventInput]{
			entity: model.EntityEvent,
			create: svc.CreateEvent, update: svc.UpdateEvent, remove: svc.DeleteEvent,
			get: svc.GetEvent, list: svc.ListEvents, bySlug: svc.GetEventBySlug,
			view: func(e store.Event) any { return eventView{e, md.HTML(e.Description)} },
		},
		&resource[store.Startup, content.StartupInput]{
			entity: model.EntityStartup,
			create: svc.CreateStartup, update: svc.UpdateStartup, remove: svc.DeleteStartup,
			get: svc.GetStartup, list: svc.ListStartups, bySlug: svc.GetStartupBySlug,
			view: func(s store.Startup) any { return startupView{s, md.HTML(s.Description)} },
		},
	}
}

// principal returns the request's principal, nil when anonymous.
func principal(r *http.Request) *model.Principal {
	return middleware.GetPrincipal(r)
}
