package service

import (
	"github.com/pkg/errors"

	"storefront/internal/domain/entity"
)

// ErrInvalidToken is wrapped by every verification failure: bad signature,
// unexpected algorithm, malformed claims or expiry.
var ErrInvalidToken = errors.New("invalid token")

// TokenService signs and verifies the two JWT kinds the platform issues.
// Access and refresh tokens are signed with independent secrets so that one
// can never be accepted in place of the other.
type TokenService interface {
	SignAccessToken(payload *entity.AccessTokenPayload) (string, error)
	VerifyAccessToken(token string) (*entity.AccessTokenPayload, error)

	SignRefreshToken(payload *entity.RefreshTokenPayload) (string, error)
	VerifyRefreshToken(token string) (*entity.RefreshTokenPayload, error)
}
