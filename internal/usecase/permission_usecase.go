package usecase

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
)

// PermissionUsecase answers RBAC questions for the authorization pipeline.
type PermissionUsecase interface {
	// CheckPermission fails with ErrForbidden unless the role is active and owns (method, path).
	CheckPermission(ctx context.Context, roleID uuid.UUID, method entity.HTTPMethod, path string) error
}
