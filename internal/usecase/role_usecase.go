package usecase

import (
	"context"

	"github.com/google/uuid"
)

// RoleUsecase holds the role rules that other use cases depend on.
type RoleUsecase interface {
	// ClientRoleID resolves the default role given to self-registered users.
	ClientRoleID(ctx context.Context) (uuid.UUID, error)
}
