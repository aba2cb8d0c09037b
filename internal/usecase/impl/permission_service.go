package impl

import (
	"context"
	"log/slog"

	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// permissionService implements the PermissionUsecase interface.
type permissionService struct {
	roleRepo repository.RoleRepository
	logger   *slog.Logger
}

// PermissionServiceParams holds dependencies for PermissionService, injected by Fx.
type PermissionServiceParams struct {
	fx.In

	RoleRepo repository.RoleRepository
	Logger   *slog.Logger
}

// NewPermissionService is the constructor for permissionService.
func NewPermissionService(params PermissionServiceParams) usecase.PermissionUsecase {
	return &permissionService{
		roleRepo: params.RoleRepo,
		logger:   params.Logger,
	}
}

func (srv *permissionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// CheckPermission authorizes a role for one exact (method, path) pair.
func (srv *permissionService) CheckPermission(ctx context.Context, roleID uuid.UUID, method entity.HTTPMethod, path string) error {
	role, err := srv.roleRepo.FindActiveWithPermission(ctx, roleID, method, path)
	if repository.OutcomeOf(err) == repository.OutcomeNotFound {
		srv.log(ctx).Warn("Permission denied, role unusable", slog.String("roleID", roleID.String()))

		return domainerrors.ErrForbidden
	}
	if err != nil {
		return errors.Wrap(err, "failed to load role permissions")
	}

	for _, permission := range role.Permissions {
		if permission.Matches(method, path) {
			return nil
		}
	}

	srv.log(ctx).Warn("Permission denied",
		slog.String("role", role.Name),
		slog.String("method", string(method)),
		slog.String("path", path),
	)

	return domainerrors.ErrForbidden
}
