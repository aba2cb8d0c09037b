package usecase

import (
	"context"

	"storefront/internal/domain/entity"
)

// VerificationUsecase generates, stores and checks email verification codes.
// Consuming a code is left to the calling use case so it can happen in its transaction.
type VerificationUsecase interface {
	// Generate draws a 6 digit, zero padded code.
	Generate() (string, error)

	// Issue replaces the outstanding code for (email, type) with a fresh one.
	Issue(ctx context.Context, email string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error)

	// Validate fails with ErrInvalidOTP when no record matches and ErrOTPExpired once it has expired.
	Validate(ctx context.Context, email, code string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error)
}
