// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/service"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new client account.
type RegisterInput struct {
	Email       string
	Name        string
	Password    string
	PhoneNumber string
	Code        string
}

// SendOTPInput asks for a verification code scoped to one intent.
type SendOTPInput struct {
	Email string
	Type  entity.VerificationCodeType
}

// LoginInput defines the data required for a user to log in.
// TOTPCode and Code are optional second factors.
type LoginInput struct {
	Email    string
	Password string
	TOTPCode string
	Code     string
	Client   service.ClientInfo
}

// RefreshTokenInput redeems a refresh token from the given client.
type RefreshTokenInput struct {
	RefreshToken string
	Client       service.ClientInfo
}

// LogoutInput revokes a refresh token and its device.
type LogoutInput struct {
	RefreshToken string
}

// ForgotPasswordInput resets a password with a FORGOT_PASSWORD code.
type ForgotPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
}

// Disable2FAInput needs exactly one of TOTPCode or Code.
type Disable2FAInput struct {
	UserID   uuid.UUID
	TOTPCode string
	Code     string
}

// GoogleCallbackInput carries the query of the Google redirect and the nonce the
// initiating browser kept from GoogleAuthorizationURL.
type GoogleCallbackInput struct {
	Code  string
	State string
	Nonce string
}

// --- Output DTOs ---

// UserOutput is a user without credentials or secrets.
type UserOutput struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	PhoneNumber string            `json:"phoneNumber"`
	Avatar      *string           `json:"avatar"`
	Status      entity.UserStatus `json:"status"`
	RoleID      uuid.UUID         `json:"roleId"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewUserOutput strips the password hash and TOTP secret from a user.
func NewUserOutput(user *entity.User) *UserOutput {
	return &UserOutput{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		PhoneNumber: user.PhoneNumber,
		Avatar:      user.Avatar,
		Status:      user.Status,
		RoleID:      user.RoleID,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// GoogleLinkOutput is the consent screen URL and the nonce sealed into its state. The
// nonce must stay with the browser that asked for the link.
type GoogleLinkOutput struct {
	URL   string
	Nonce string
}

// Setup2FAOutput is the provisioning data for an authenticator app.
type Setup2FAOutput struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	// QRCode is a PNG data URI rendering of URI
	QRCode string `json:"qrCode"`
}

// AuthUsecase defines the authentication and session use cases.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*UserOutput, error)
	SendOTP(ctx context.Context, input *SendOTPInput) error
	Login(ctx context.Context, input *LoginInput) (*entity.TokenPair, error)
	RefreshToken(ctx context.Context, input *RefreshTokenInput) (*entity.TokenPair, error)
	Logout(ctx context.Context, input *LogoutInput) error
	ForgotPassword(ctx context.Context, input *ForgotPasswordInput) error
	Setup2FA(ctx context.Context, userID uuid.UUID) (*Setup2FAOutput, error)
	Disable2FA(ctx context.Context, input *Disable2FAInput) error

	// GoogleAuthorizationURL returns the consent screen URL with the client sealed into the state.
	GoogleAuthorizationURL(ctx context.Context, client service.ClientInfo) (*GoogleLinkOutput, error)
	GoogleCallback(ctx context.Context, input *GoogleCallbackInput) (*entity.TokenPair, error)
}
