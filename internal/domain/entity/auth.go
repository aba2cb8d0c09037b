// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the server-side record of an issued, not yet redeemed refresh token.
// A record is deleted the moment its token is redeemed by refresh or logout.
type RefreshToken struct {
	ID        uuid.UUID // The unique ID for this specific refresh token record.
	TokenHash string    // SHA-256 hex digest of the signed refresh token.
	UserID    uuid.UUID // Owner of the session.
	DeviceID  uuid.UUID // Device the token was issued to.
	ExpiresAt time.Time // Mirrors the token's own exp claim.
	CreatedAt time.Time // Timestamp of when this token was issued.
	User      *User     // Loaded owner (with role), nil unless joined.
}

// AccessTokenPayload is the verified content of an access token. It is never persisted.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	RoleID    uuid.UUID
	RoleName  string
	DeviceID  uuid.UUID
	UUID      string
	ExpiresAt time.Time
}

// RefreshTokenPayload is the verified content of a refresh token.
type RefreshTokenPayload struct {
	UserID    uuid.UUID
	UUID      string
	ExpiresAt time.Time
}

// TokenPair is what a successful login, refresh or OAuth callback hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
