// Package security holds shop roles, the CSRF token scheme spoken by the
// backend and free-text sanitising.
package security

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Common auth errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Role is a marketplace role.
type Role string

const (
	RoleBuyer         Role = "buyer"
	RoleSeller        Role = "seller"
	RoleDeliveryAgent Role = "delivery_agent"
	RoleAdmin         Role = "admin"
	RoleSuperAdmin    Role = "super_admin"
)

// Roles lists every known role.
var Roles = []Role{RoleBuyer, RoleSeller, RoleDeliveryAgent, RoleAdmin, RoleSuperAdmin}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Roles, r) {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User status values.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
	StatusPending   = "pending"
)

// User is an account as returned by the backend.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Role   Role   `json:"role,omitempty"`
	Roles  []Role `json:"roles,omitempty"`
	Status string `json:"status,omitempty"`
}

// AllRoles returns the primary role together with any additional ones.
func (u *User) AllRoles() []Role {
	if u == nil {
		return nil
	}
	out := make([]Role, 0, len(u.Roles)+1)
	if u.Role != "" {
		out = append(out, u.Role)
	}
	for _, r := range u.Roles {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// HasRole returns true if the user has the specified role.
func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.AllRoles(), role)
}

// HasAnyRole returns true if the user has any of the specified roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user is an admin or super admin.
func (u *User) IsAdmin() bool {
	return u.HasAnyRole(RoleAdmin, RoleSuperAdmin)
}

// Require returns ErrUnauthorized for a nil user and ErrForbidden unless the
// user holds one of roles.
func (u *User) Require(roles ...Role) error {
	if u == nil {
		return ErrUnauthorized
	}
	if !u.HasAnyRole(roles...) {
		return fmt.Errorf("%w: requires one of %v", ErrForbidden, roles)
	}
	return nil
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
