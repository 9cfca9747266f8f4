// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
)

// HomeCourseLimit caps the number of courses on the home page.
const HomeCourseLimit = 6

// Home returns the published course highlights shown on the landing page.
func (s *Service) Home(ctx context.Context) ([]store.Course, error) {
	page, err := s.ListCourses(ctx, nil, ListOptions{Scope: ScopePublic, Limit: HomeCourseLimit})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// ListUsers returns every user account. Only SUPER_ADMIN may list users.
func (s *Service) ListUsers(ctx context.Context, p *model.Principal) ([]store.User, error) {
	if err := s.authorize(ctx, p, auth.ActionView, model.EntityUser); err != nil {
		return nil, err
	}
	users, err := s.queries.ListUsers(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list", model.EntityUser, err)
	}
	return users, nil
}
