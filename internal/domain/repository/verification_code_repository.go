package repository

import (
	"context"
	"time"

	"storefront/internal/domain/entity"
)

// ErrVerificationCodeNotFound is returned when no code matches (email, code, type).
var ErrVerificationCodeNotFound = notFound("verification code")

// VerificationCodeRepository defines persistence operations for emailed one-time codes.
type VerificationCodeRepository interface {
	// Upsert stores the code as the only outstanding one for its (email, type) pair,
	// overwriting the code and expiry of a previous one.
	Upsert(ctx context.Context, code *entity.VerificationCode) error

	// Find retrieves the code matching all three keys.
	Find(ctx context.Context, email, code string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error)

	// Delete consumes the code matching all three keys. A second delete of the same code
	// yields ErrVerificationCodeNotFound.
	Delete(ctx context.Context, email, code string, codeType entity.VerificationCodeType) error

	// DeleteExpired removes codes that expired before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
