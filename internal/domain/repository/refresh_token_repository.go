package repository

import (
	"context"
	"time"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrRefreshTokenNotFound is returned when no record exists for a token, i.e. it was
	// never issued or has already been redeemed.
	ErrRefreshTokenNotFound = notFound("refresh token")
	// ErrRefreshTokenAlreadyExists is returned when the same token digest is stored twice.
	ErrRefreshTokenAlreadyExists = conflict("refresh token")
)

// RefreshTokenRepository defines the interface for refresh token persistence.
type RefreshTokenRepository interface {
	// Create persists a newly issued refresh token.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// FindByTokenHash retrieves a refresh token with its owning user and the user's role.
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// DeleteByTokenHash atomically removes the record and returns it. Of two concurrent
	// callers presenting the same digest exactly one receives the record; the other gets
	// ErrRefreshTokenNotFound.
	DeleteByTokenHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// DeleteExpired removes records that expired before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// DeleteByDevice removes every token issued to a device.
	DeleteByDevice(ctx context.Context, deviceID uuid.UUID) (int64, error)

	// DeleteByUser removes every token of the user except those of keepDeviceID, which may be
	// uuid.Nil.
	DeleteByUser(ctx context.Context, userID, keepDeviceID uuid.UUID) (int64, error)
}
