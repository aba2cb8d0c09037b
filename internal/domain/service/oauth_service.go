package service

import (
	"context"
	"time"
)

// GoogleProfile is the subset of the Google userinfo response the platform consumes.
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}

// ClientInfo identifies the client that started a flow: the device fingerprint
// used when a device record is created.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// OAuthState is the payload carried through the Google redirect in the state parameter.
// Nonce is also held by the initiating browser and must match it on callback.
type OAuthState struct {
	UserAgent string
	IP        string
	Nonce     string
	ExpiresAt time.Time
}

// GoogleOAuthService drives the Google authorization code flow.
type GoogleOAuthService interface {
	// AuthorizationURL builds the consent screen URL carrying the given state.
	AuthorizationURL(state string) string

	// FetchProfile exchanges an authorization code and reads the user's profile.
	FetchProfile(ctx context.Context, code string) (*GoogleProfile, error)
}

// OAuthStateCodec seals the client fingerprint and a nonce into a tamper-proof, expiring state string.
type OAuthStateCodec interface {
	Encode(client ClientInfo, nonce string) (string, error)
	Decode(state string) (*OAuthState, error)
}
