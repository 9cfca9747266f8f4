// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/util"
)

// MinFoundedYear is the earliest accepted founding year.
const MinFoundedYear = 1800

// StartupInput is the full field set of an incubated startup.
type StartupInput struct {
	Name        string   `json:"name"`
	Tagline     string   `json:"tagline"`
	Description string   `json:"description"`
	Industry    string   `json:"industry"`
	Stage       string   `json:"stage"`
	Founders    []string `json:"founders"`
	WebsiteURL  string   `json:"website_url"`
	LogoURL     string   `json:"logo_url"`
	FoundedYear int64    `json:"founded_year"`
	IsActive    bool     `json:"is_active"`
}

func (in StartupInput) normalize() StartupInput {
	in.Name = clean(in.Name)
	in.Tagline = clean(in.Tagline)
	in.Description = clean(in.Description)
	in.Industry = clean(in.Industry)
	in.Stage = clean(in.Stage)
	in.Founders = util.NormalizeList(in.Founders)
	in.WebsiteURL = clean(in.WebsiteURL)
	in.LogoURL = clean(in.LogoURL)
	return in
}

func (in StartupInput) validate(now time.Time) error {
	var c fieldCheck
	c.required("name", in.Name)
	c.maxLen("name", in.Name, MaxTitleLength)
	c.maxLen("tagline", in.Tagline, MaxShortLength)
	c.maxLen("description", in.Description, MaxBodyLength)
	c.maxLen("industry", in.Industry, MaxTitleLength)
	c.maxLen("stage", in.Stage, MaxTitleLength)
	c.list("founders", in.Founders)
	c.url("website_url", in.WebsiteURL)
	c.url("logo_url", in.LogoURL)
	if max := int64(now.Year() + 1); in.FoundedYear != 0 && (in.FoundedYear < MinFoundedYear || in.FoundedYear > max) {
		c.add("founded_year", fmt.Sprintf("Founded year must be between %d and %d", MinFoundedYear, max))
	}
	return c.err()
}

func (in StartupInput) params(id, slug string, now time.Time) store.UpsertStartupParams {
	return store.UpsertStartupParams{
		ID:          id,
		Slug:        slug,
		Name:        in.Name,
		Tagline:     in.Tagline,
		Description: in.Description,
		Industry:    in.Industry,
		Stage:       in.Stage,
		Founders:    store.StringList(in.Founders),
		WebsiteURL:  in.WebsiteURL,
		LogoURL:     in.LogoURL,
		FoundedYear: in.FoundedYear,
		IsActive:    in.IsActive,
		Now:         now,
	}
}

// CreateStartup creates a startup. The slug is derived from the name.
func (s *Service) CreateStartup(ctx context.Context, p *model.Principal, in StartupInput) (store.Startup, error) {
	const verb = "create"
	entity := model.EntityStartup

	if err := s.authorize(ctx, p, auth.ActionCreate, entity); err != nil {
		return store.Startup{}, err
	}
	now := s.clock()
	in = in.normalize()
	if err := in.validate(now); err != nil {
		return store.Startup{}, err
	}

	slug, err := s.claimSlug(ctx, entity, verb, "name", in.Name, "", s.queries.StartupSlugTaken)
	if err != nil {
		return store.Startup{}, err
	}

	arg := in.params(uuid.NewString(), slug, now)
	arg.AuthorID = authorID(p)

	startup, err := s.queries.CreateStartup(ctx, arg)
	if err != nil {
		return store.Startup{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionCreated, ID: startup.ID, Slug: startup.Slug,
		Paths: AffectedPaths(entity, startup.Slug), Visible: startup.IsActive, Record: startup,
	})
	return startup, nil
}

// UpdateStartup replaces every field of the startup with id.
func (s *Service) UpdateStartup(ctx context.Context, p *model.Principal, id string, in StartupInput) (store.Startup, error) {
	const verb = "update"
	entity := model.EntityStartup

	if err := s.authorize(ctx, p, auth.ActionUpdate, entity); err != nil {
		return store.Startup{}, err
	}
	now := s.clock()
	in = in.normalize()
	if err := in.validate(now); err != nil {
		return store.Startup{}, err
	}

	current, err := s.queries.GetStartupByID(ctx, id)
	if err != nil {
		return store.Startup{}, s.storeErr(ctx, verb, entity, err)
	}

	slug, err := s.claimSlug(ctx, entity, verb, "name", in.Name, id, s.queries.StartupSlugTaken)
	if err != nil {
		return store.Startup{}, err
	}

	startup, err := s.queries.UpdateStartup(ctx, in.params(id, slug, now))
	if err != nil {
		return store.Startup{}, s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionUpdated, ID: startup.ID, Slug: startup.Slug, PreviousSlug: renamedFrom(current.Slug, startup.Slug),
		Paths: AffectedPaths(entity, current.Slug, startup.Slug), Visible: startup.IsActive, Record: startup,
	})
	return startup, nil
}

// DeleteStartup permanently removes the startup with id.
func (s *Service) DeleteStartup(ctx context.Context, p *model.Principal, id string) error {
	const verb = "delete"
	entity := model.EntityStartup

	if err := s.authorize(ctx, p, auth.ActionDelete, entity); err != nil {
		return err
	}

	current, err := s.queries.GetStartupByID(ctx, id)
	if err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}
	if err := s.queries.DeleteStartup(ctx, id); err != nil {
		return s.storeErr(ctx, verb, entity, err)
	}

	s.publish(ctx, p, Change{
		Entity: entity, Action: ActionDeleted, ID: current.ID, Slug: current.Slug,
		Paths: AffectedPaths(entity, current.Slug),
	})
	return nil
}

// ListStartups lists startups. Category filters on industry.
func (s *Service) ListStartups(ctx context.Context, p *model.Principal, opts ListOptions) (Page[store.Startup], error) {
	return listPage(ctx, s, p, model.EntityStartup, opts, s.queries.ListStartups, s.queries.CountStartups)
}

// GetStartupBySlug returns the startup with slug.
func (s *Service) GetStartupBySlug(ctx context.Context, p *model.Principal, slug string, scope Scope) (store.Startup, error) {
	return getOne(ctx, s, p, model.EntityStartup, scope, s.queries.GetStartupBySlug, slug, startupVisible)
}

// GetStartup returns the startup with id for the admin surface.
func (s *Service) GetStartup(ctx context.Context, p *model.Principal, id string) (store.Startup, error) {
	return getOne(ctx, s, p, model.EntityStartup, ScopeAdmin, s.queries.GetStartupByID, id, startupVisible)
}

func startupVisible(st store.Startup, _ time.Time) bool { return st.IsActive }
