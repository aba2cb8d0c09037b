package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PurgeOutput counts the rows removed by a purge.
type PurgeOutput struct {
	RefreshTokens     int64 `json:"refreshTokens"`
	VerificationCodes int64 `json:"verificationCodes"`
}

// DeviceOutput is one signed-in device as shown to its owner.
type DeviceOutput struct {
	ID         uuid.UUID `json:"id"`
	UserAgent  string    `json:"userAgent"`
	IP         string    `json:"ip"`
	LastActive time.Time `json:"lastActive"`
	CreatedAt  time.Time `json:"createdAt"`
	Current    bool      `json:"current"` // The device the request was made from
}

// RevokeOutput counts what a revocation logged out.
type RevokeOutput struct {
	Devices       int64 `json:"devices"`
	RefreshTokens int64 `json:"refreshTokens"`
}

// SessionUsecase maintains stored session state.
type SessionUsecase interface {
	// PurgeExpired removes refresh tokens and verification codes past their expiry.
	PurgeExpired(ctx context.Context) (*PurgeOutput, error)

	// ListDevices returns the user's active devices, flagging currentDeviceID.
	ListDevices(ctx context.Context, userID, currentDeviceID uuid.UUID) ([]*DeviceOutput, error)

	// RevokeDevice deletes the refresh tokens of one of the user's devices and deactivates it.
	// A device owned by someone else is reported as not found.
	RevokeDevice(ctx context.Context, userID, deviceID uuid.UUID) (*RevokeOutput, error)

	// RevokeAllDevices logs the user out everywhere, including the calling device.
	RevokeAllDevices(ctx context.Context, userID uuid.UUID) (*RevokeOutput, error)

	// RevokeOtherDevices logs the user out everywhere except currentDeviceID.
	RevokeOtherDevices(ctx context.Context, userID, currentDeviceID uuid.UUID) (*RevokeOutput, error)
}
