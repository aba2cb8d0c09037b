package impl

import (
	"context"
	"log/slog"
	"sync"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// roleService implements the RoleUsecase interface.
type roleService struct {
	roleRepo repository.RoleRepository
	logger   *slog.Logger

	mu           sync.RWMutex
	clientRoleID uuid.UUID
}

// RoleServiceParams holds dependencies for RoleService, injected by Fx.
type RoleServiceParams struct {
	fx.In

	RoleRepo repository.RoleRepository
	Logger   *slog.Logger
}

// NewRoleService is the constructor for roleService.
func NewRoleService(params RoleServiceParams) usecase.RoleUsecase {
	return &roleService{
		roleRepo: params.RoleRepo,
		logger:   params.Logger,
	}
}

// ClientRoleID caches the id after the first successful lookup; base roles are never renamed.
func (srv *roleService) ClientRoleID(ctx context.Context) (uuid.UUID, error) {
	srv.mu.RLock()
	cached := srv.clientRoleID
	srv.mu.RUnlock()

	if cached != uuid.Nil {
		return cached, nil
	}

	role, err := srv.roleRepo.FindByName(ctx, entity.RoleClient)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to resolve client role")
	}

	srv.mu.Lock()
	srv.clientRoleID = role.ID
	srv.mu.Unlock()

	return role.ID, nil
}
