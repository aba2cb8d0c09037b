package repository

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrRoleNotFound is returned when no usable role matches the lookup.
	ErrRoleNotFound = notFound("role")
	// ErrRoleAlreadyExists is returned when a role name is already taken.
	ErrRoleAlreadyExists = conflict("role name")
	// ErrPermissionNotFound is returned when no permission matches the lookup.
	ErrPermissionNotFound = notFound("permission")
	// ErrPermissionAlreadyExists is returned when a (method, path) pair is already registered.
	ErrPermissionAlreadyExists = conflict("permission route")
)

// RoleRepository defines persistence operations for roles and their permission grants.
type RoleRepository interface {
	// FindByID retrieves a non-deleted role.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Role, error)

	// FindByName retrieves a non-deleted role by its unique name.
	FindByName(ctx context.Context, name string) (*entity.Role, error)

	// FindActiveWithPermission loads an active, non-deleted role together with only those
	// non-deleted permissions matching method and path. A missing, inactive or deleted role
	// yields ErrRoleNotFound; a role without a matching grant has an empty Permissions slice.
	FindActiveWithPermission(ctx context.Context, roleID uuid.UUID, method entity.HTTPMethod, path string) (*entity.Role, error)

	// Count returns the number of roles, deleted ones included.
	Count(ctx context.Context) (int64, error)

	// Create persists a new role.
	Create(ctx context.Context, role *entity.Role) error

	// GrantPermissions attaches permissions to a role. Existing grants are left untouched.
	GrantPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
}

// PermissionRepository defines persistence operations for route permissions.
type PermissionRepository interface {
	// FindByRoute retrieves a non-deleted permission by method and path.
	FindByRoute(ctx context.Context, method entity.HTTPMethod, path string) (*entity.Permission, error)

	// Create persists a new permission.
	Create(ctx context.Context, permission *entity.Permission) error
}
