package service

import (
	"context"

	"storefront/internal/domain/entity"
)

// OTPSendLimiter caps how many verification codes one email may request per window.
type OTPSendLimiter interface {
	// Allow records an attempt and reports whether it is within the limit.
	Allow(ctx context.Context, email string, codeType entity.VerificationCodeType) (bool, error)
}
