// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain types shared across the application:
// user roles, the request principal, content entity kinds and event-log
// constants.
package model

import "strings"

// Role is a user role tier.
type Role string

// Role tiers, from most to least privileged.
const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleAdmin         Role = "ADMIN"
	RoleContentEditor Role = "CONTENT_EDITOR"
)

// Roles lists all valid roles in descending privilege order.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleContentEditor}

// ParseRole converts a stored role string into a Role.
// Matching is case-insensitive; the second result is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleContentEditor:
		return r, true
	}
	return "", false
}

// Level returns the numeric privilege level of the role.
// Higher level = more permissions. Unknown roles have level 0.
func (r Role) Level() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleContentEditor:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// AtLeast reports whether r is at or above min in the role hierarchy.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Level() >= min.Level()
}

// Principal is the signed-in user a request acts on behalf of.
// A nil *Principal means an anonymous caller.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsSuperAdmin returns true if the principal holds the SUPER_ADMIN role.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// IsAuthenticated returns true for a non-nil principal with a known role.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.ID != "" && p.Role.Valid()
}
