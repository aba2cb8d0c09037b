package auth

import (
	"time"

	"storefront/config"
	"storefront/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrInvalidState is wrapped by every state that fails to decode.
var ErrInvalidState = errors.New("invalid oauth state")

type stateClaims struct {
	UserAgent string `json:"userAgent"`
	IP        string `json:"ip"`
	jwt.RegisteredClaims
}

// stateCodec seals the client fingerprint into a short-lived HS256 token, so the
// Google redirect cannot carry forged device metadata. The nonce travels as the jti.
type stateCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewOAuthStateCodec(cfg *config.Config) service.OAuthStateCodec {
	return newStateCodec(cfg.SecretKey.OAuthState, cfg.GoogleOAuth.StateTTL, time.Now)
}

func newStateCodec(secret string, ttl time.Duration, now func() time.Time) *stateCodec {
	return &stateCodec{secret: []byte(secret), ttl: ttl, now: now}
}

func (c *stateCodec) Encode(client service.ClientInfo, nonce string) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("secretKey.oauthState is not configured")
	}
	if nonce == "" {
		return "", errors.New("oauth state nonce is empty")
	}

	now := c.now()
	claims := &stateClaims{
		UserAgent: client.UserAgent,
		IP:        client.IP,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	state, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign oauth state")
	}

	return state, nil
}

func (c *stateCodec) Decode(state string) (*service.OAuthState, error) {
	if len(c.secret) == 0 {
		return nil, errors.Wrap(ErrInvalidState, "secret not configured")
	}

	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidState, err.Error())
	}

	return &service.OAuthState{
		UserAgent: claims.UserAgent,
		IP:        claims.IP,
		Nonce:     claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
