// Package entity contains the core business objects of the project.
package entity

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Base role names seeded at install time.
const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"
	RoleSeller = "SELLER"
)

// BaseRoles lists the roles that cannot be modified or deleted once seeded.
func BaseRoles() []string {
	return []string{RoleAdmin, RoleClient, RoleSeller}
}

// IsBaseRole reports whether name is one of the protected base roles.
func IsBaseRole(name string) bool {
	return slices.Contains(BaseRoles(), name)
}

// Role groups a set of permissions that can be granted to users.
type Role struct {
	ID          uuid.UUID     // The unique ID of the role.
	Name        string        // Unique role name, e.g. "ADMIN".
	Description string        // Human readable description.
	IsActive    bool          // Inactive roles authorize nothing.
	Permissions []*Permission // Loaded permissions, possibly filtered by the query that loaded them.
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time // Soft-delete marker.
}

// HTTPMethod is the verb half of a permission.
type HTTPMethod string

const (
	MethodGet     HTTPMethod = "GET"
	MethodPost    HTTPMethod = "POST"
	MethodPut     HTTPMethod = "PUT"
	MethodDelete  HTTPMethod = "DELETE"
	MethodPatch   HTTPMethod = "PATCH"
	MethodOptions HTTPMethod = "OPTIONS"
	MethodHead    HTTPMethod = "HEAD"
)

// IsValid checks if the method is one of the supported HTTP verbs.
func (m HTTPMethod) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodOptions, MethodHead:
		return true
	default:
		return false
	}
}

// ParseHTTPMethod normalizes a raw request method.
func ParseHTTPMethod(raw string) (HTTPMethod, bool) {
	m := HTTPMethod(strings.ToUpper(raw))

	return m, m.IsValid()
}

// Permission grants access to exactly one route, identified by method and route path.
type Permission struct {
	ID          uuid.UUID  // The unique ID of the permission.
	Name        string     // Display name, e.g. "Setup 2FA".
	Description string     // Optional description.
	Module      string     // Feature module the route belongs to, e.g. "AUTH".
	Method      HTTPMethod // HTTP verb.
	Path        string     // Route path pattern as registered on the router, e.g. "/auth/2fa/setup".
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Matches reports whether the permission covers the given route.
func (p *Permission) Matches(method HTTPMethod, path string) bool {
	return p.DeletedAt == nil && p.Method == method && p.Path == path
}
