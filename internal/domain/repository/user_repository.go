package repository

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no non-deleted user matches the lookup.
	ErrUserNotFound = notFound("user")
	// ErrUserAlreadyExists is returned when the email is already taken.
	ErrUserAlreadyExists = conflict("user email")
	// ErrTOTPSecretAlreadySet is returned when binding a secret to a user that already has one.
	ErrTOTPSecretAlreadySet = conflict("totp secret")
)

// UserRepository defines the standard operations for user persistence.
// The application layer will depend on this interface, not the concrete implementation.
type UserRepository interface {
	// FindByID retrieves a single user with its role.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user with its role.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user. A taken email yields ErrUserAlreadyExists at insertion time.
	Create(ctx context.Context, user *entity.User) error

	// UpdatePassword replaces the password hash of a user.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// SetTOTPSecret binds a secret only while the user has none, so of two concurrent
	// setups one gets ErrTOTPSecretAlreadySet.
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error

	// ClearTOTPSecret removes the TOTP secret of a user.
	ClearTOTPSecret(ctx context.Context, id uuid.UUID) error
}
