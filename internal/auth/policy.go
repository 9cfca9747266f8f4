// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"fmt"

	"github.com/olegiv/institute-cms/internal/model"
)

// Action is an operation a principal may attempt on an entity.
type Action string

// Actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionToggle Action = "toggle"
	ActionView   Action = "view"
)

// Capability names a single permission, e.g. "delete blog".
type Capability struct {
	Entity model.Entity
	Action Action
}

// Can builds a Capability.
func Can(action Action, entity model.Entity) Capability {
	return Capability{Entity: entity, Action: action}
}

func (c Capability) String() string {
	return string(c.Action) + " " + string(c.Entity)
}

// ReasonUnauthorized is the generic denial reason.
const ReasonUnauthorized = "Unauthorized"

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

// rule describes who holds a capability.
type rule int

const (
	denyAll rule = iota
	anySession
	notEditor
	superAdminOnly
)

// capabilities is the single source of truth for content permissions.
// Anything missing from the table is denied.
var capabilities = map[Capability]rule{
	Can(ActionCreate, model.EntityBlog): notEditor,
	Can(ActionUpdate, model.EntityBlog): notEditor,
	Can(ActionDelete, model.EntityBlog): superAdminOnly,
	Can(ActionToggle, model.EntityBlog): notEditor,

	Can(ActionCreate, model.EntityCourse): notEditor,
	Can(ActionUpdate, model.EntityCourse): notEditor,
	Can(ActionDelete, model.EntityCourse): notEditor,
	Can(ActionToggle, model.EntityCourse): notEditor,

	Can(ActionCreate, model.EntityNotice): anySession,
	Can(ActionUpdate, model.EntityNotice): anySession,
	Can(ActionDelete, model.EntityNotice): anySession,
	Can(ActionToggle, model.EntityNotice): anySession,

	Can(ActionCreate, model.EntityFaculty): notEditor,
	Can(ActionUpdate, model.EntityFaculty): notEditor,
	Can(ActionDelete, model.EntityFaculty): superAdminOnly,
	Can(ActionToggle, model.EntityFaculty): notEditor,

	Can(ActionCreate, model.EntityEvent): notEditor,
	Can(ActionUpdate, model.EntityEvent): notEditor,
	Can(ActionDelete, model.EntityEvent): superAdminOnly,
	Can(ActionToggle, model.EntityEvent): denyAll,

	Can(ActionCreate, model.EntityStartup): notEditor,
	Can(ActionUpdate, model.EntityStartup): notEditor,
	Can(ActionDelete, model.EntityStartup): superAdminOnly,
	Can(ActionToggle, model.EntityStartup): denyAll,

	Can(ActionView, model.EntityUser): superAdminOnly,
}

// Authorize decides whether principal holds capability. A nil principal is
// anonymous. Unknown roles and capabilities missing from the table are
// denied.
func Authorize(principal *model.Principal, capability Capability) Decision {
	if !principal.IsAuthenticated() {
		return deny(ReasonUnauthorized)
	}

	r, ok := capabilities[capability]
	if !ok {
		return deny(ReasonUnauthorized)
	}

	if holds(principal.Role, r) {
		return Decision{Allowed: true}
	}

	if r == superAdminOnly && capability.Action == ActionDelete {
		return deny(fmt.Sprintf("Only Super Admin can delete %s", capability.Entity.Plural()))
	}
	return deny(ReasonUnauthorized)
}

func holds(role model.Role, r rule) bool {
	switch r {
	case anySession:
		return role.Valid()
	case notEditor:
		return role.AtLeast(model.RoleAdmin)
	case superAdminOnly:
		return role == model.RoleSuperAdmin
	default:
		return false
	}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
