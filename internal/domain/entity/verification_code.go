package entity

import (
	"time"

	"github.com/google/uuid"
)

// VerificationCodeType scopes a one-time passcode to the intent it was issued for.
type VerificationCodeType string

const (
	VerificationCodeRegister       VerificationCodeType = "REGISTER"
	VerificationCodeLogin          VerificationCodeType = "LOGIN"
	VerificationCodeForgotPassword VerificationCodeType = "FORGOT_PASSWORD"
	VerificationCodeDisable2FA     VerificationCodeType = "DISABLE_2FA"
)

// IsValid checks if the type is a supported intent.
func (t VerificationCodeType) IsValid() bool {
	switch t {
	case VerificationCodeRegister, VerificationCodeLogin, VerificationCodeForgotPassword, VerificationCodeDisable2FA:
		return true
	default:
		return false
	}
}

// VerificationCode is an emailed 6-digit code. At most one is outstanding per (email, type).
type VerificationCode struct {
	ID        uuid.UUID
	Email     string
	Code      string
	Type      VerificationCodeType
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the code can no longer be redeemed at now.
func (v *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
