// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/util"
)

// FacultyInput is the full field set of a faculty member.
type FacultyInput struct {
	Name           string   `json:"name"`
	Designation    string   `json:"designation"`
	Department     string   `json:"department"`
	Bio            string   `json:"bio"`
	Email          string   `json:"email"`
	PhotoURL       string   `json:"photo_url"`
	Qualifications []string `json:"qualifications"`
	DisplayOrder   int64    `json:"display_order"`
	IsActive       bool     `json:"is_active"`
}

func (in FacultyInput) normalize() FacultyInput {
	in.Name = clean(in.Name)
	in.Designation = clean(in.Designation)
	in.Department = clean(in.Department)
	in.Bio = clean(in.Bio)
	in.Email = clean(in.Email)
	in.PhotoURL = clean(in.PhotoURL)
	in.Qualifications = util.NormalizeList(in.Qualifications)
	return in
}

func (in FacultyInput) validate() error {
	var c fieldCheck
	c.required("name", in.Name)
	c.maxLen("name", in.Name, MaxTitleLength)
	c.maxLen("designation", in.Designation, MaxTitleLength)
	c.maxLen("department", in.Department, MaxTitleLength)
	c.maxLen("bio", in.Bio, MaxBodyLength)
	c.email("email", in.Email)
	c.url("photo_url", in.PhotoURL)
	c.list("qualifications", in.Qualifications)
	if in.DisplayOrder < 0 {
		c.add("display_order", "Display order must not be negative")
	}
	return c.err()
}

func (in FacultyInput) params(id, slug string, now time.Time) store.UpsertFacultyParams {
	return store.UpsertFacultyParams{
		ID:             id,
		Slug:           slug,
		Name:           in.Name,
		Designation:    in.Designation,
		Department:     in.Department,
		Bio:            in.Bio,
		Email:          in.Email,
		PhotoURL:       in.PhotoURL,
		Qualifications: store.StringList(in.Qualifications),
		DisplayOrder:   in.DisplayOrder,
		IsActive:       in.IsActive,
		Now:            now,
	}
}

// CreateFaculty creates a faculty member. The slug is derived from the name.
func (s *Service) CreateFaculty(ctx context.Context, p *model.Principal, in FacultyInput) (store.Faculty, error) {
	const verb = "create"
	entity := model.EntityFaculty

	if err := s.authorize(ctx, p, auth.ActionCreate, entity); err != nil {
		return store.Faculty{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Faculty{}, err
	}

	slug, err := s.claimSlug(ctx, entity, verb, "name", in.Name, "", s.queries.FacultySlugTaken)
	if err != nil {
		return store.Faculty{}, err
	}

	now := s.clock()
	arg := in.params(uuid.NewString(), slug, now)
	arg.AuthorID = authorID(p)

	member, err := s.queries.CreateFaculty(ctx, arg)
	if err != nil {
		return store.Faculty{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionCreated, ID: member.ID, Slug: member.Slug,
		Paths: AffectedPaths(entity, member.Slug), Visible: member.IsActive, Record: member,
	})
	return member, nil
}

// UpdateFaculty replaces every field of the faculty member with id.
func (s *Service) UpdateFaculty(ctx context.Context, p *model.Principal, id string, in FacultyInput) (store.Faculty, error) {
	const verb = "update"
	entity := model.EntityFaculty

	if err := s.authorize(ctx, p, auth.ActionUpdate, entity); err != nil {
		return store.Faculty{}, err
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return store.Faculty{}, err
	}

	current, err := s.queries.GetFacultyByID(ctx, id)
	if err != nil {
		return store.Faculty{}, s.storeErr(ctx, verb, entity, err)
	}

	slug, err := s.claimSlug(ctx, entity, verb, "name", in.Name, id, s.queries.FacultySlugTaken)
	if err != nil {
		return store.Faculty{}, err
	}

	member, err := s.queries.UpdateFaculty(ctx, in.params(id, slug, s.clock()))
	if err != nil {
		return store.Faculty{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionUpdated, ID: member.ID, Slug: member.Slug, PreviousSlug: renamedFrom(current.Slug, member.Slug),
		Paths: AffectedPaths(entity, current.Slug, member.Slug), Visible: member.IsActive, Record: member,
	})
	return member, nil
}

// DeleteFaculty permanently removes the faculty member with id.
func (s *Service) DeleteFaculty(ctx context.Context, p *model.Principal, id string) error {
	const verb = "delete"
	entity := model.EntityFaculty

	if err := s.authorize(ctx, p, auth.ActionDelete, entity); err != nil {
		return err
	}

	current, err := s.queries.GetFacultyByID(ctx, id)
	if err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}
	if err := s.queries.DeleteFaculty(ctx, id); err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionDeleted, ID: current.ID, Slug: current.Slug,
		Paths: AffectedPaths(entity, current.Slug),
	})
	return nil
}

// ToggleFacultyActive flips the active flag of the faculty member with id.
func (s *Service) ToggleFacultyActive(ctx context.Context, p *model.Principal, id string) (store.Faculty, error) {
	const verb = "update"
	entity := model.EntityFaculty

	if err := s.authorize(ctx, p, auth.ActionToggle, entity); err != nil {
		return store.Faculty{}, err
	}

	current, err := s.queries.GetFacultyByID(ctx, id)
	if err != nil {
		return store.Faculty{}, s.storeErr(ctx, verb, entity, err)
	}

	member, err := s.queries.SetFacultyActive(ctx, id, !current.IsActive, s.clock())
	if err != nil {
		return store.Faculty{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionToggled, Field: "active", ID: member.ID, Slug: member.Slug,
		Paths: AffectedPaths(entity, member.Slug), Visible: member.IsActive, Record: member,
	})
	return member, nil
}

// ListFaculty lists faculty members. Public scope returns only active
// members; Category filters on department.
func (s *Service) ListFaculty(ctx context.Context, p *model.Principal, opts ListOptions) (Page[store.Faculty], error) {
	return listPage(ctx, s, p, model.EntityFaculty, opts, s.queries.ListFaculty, s.queries.CountFaculty)
}

// GetFacultyBySlug returns the faculty member with slug.
func (s *Service) GetFacultyBySlug(ctx context.Context, p *model.Principal, slug string, scope Scope) (store.Faculty, error) {
	return getOne(ctx, s, p, model.EntityFaculty, scope, s.queries.GetFacultyBySlug, slug, facultyVisible)
}

// GetFaculty returns the faculty member with id for the admin surface.
func (s *Service) GetFaculty(ctx context.Context, p *model.Principal, id string) (store.Faculty, error) {
	return getOne(ctx, s, p, model.EntityFaculty, ScopeAdmin, s.queries.GetFacultyByID, id, facultyVisible)
}

func facultyVisible(f store.Faculty, _ time.Time) bool { return f.IsActive }
