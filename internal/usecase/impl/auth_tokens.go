package impl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// generateTokens signs both tokens concurrently and stores the refresh token record with the
// expiry read back from the signed token, so the two never drift.
func (srv *authService) generateTokens(
	ctx context.Context,
	refreshRepo repository.RefreshTokenRepository,
	user *entity.User,
	deviceID uuid.UUID,
) (*entity.TokenPair, error) {
	var accessToken, refreshToken string

	var g errgroup.Group
	g.Go(func() error {
		var err error
		accessToken, err = srv.tokenService.SignAccessToken(&entity.AccessTokenPayload{
			UserID:   user.ID,
			RoleID:   user.RoleID,
			RoleName: user.RoleName(),
			DeviceID: deviceID,
		})

		return errors.Wrap(err, "failed to sign access token")
	})
	g.Go(func() error {
		var err error
		refreshToken, err = srv.tokenService.SignRefreshToken(&entity.RefreshTokenPayload{UserID: user.ID})

		return errors.Wrap(err, "failed to sign refresh token")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	decoded, err := srv.tokenService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode issued refresh token")
	}

	record := &entity.RefreshToken{
		TokenHash: hashToken(refreshToken),
		UserID:    user.ID,
		DeviceID:  deviceID,
		ExpiresAt: decoded.ExpiresAt,
	}
	if err := refreshRepo.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	return &entity.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// hashToken is the lookup key of a refresh token. Raw tokens are never stored.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
