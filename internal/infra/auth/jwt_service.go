package auth

import (
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// signingMethod is the only algorithm tokens are signed with or accepted under.
var signingMethod = jwt.SigningMethodHS256

type accessClaims struct {
	UserID   string `json:"userId"`
	RoleID   string `json:"roleId"`
	RoleName string `json:"roleName"`
	DeviceID string `json:"deviceId"`
	UUID     string `json:"uuid"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"userId"`
	UUID   string `json:"uuid"`
	jwt.RegisteredClaims
}

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewJWTService builds the token service from secretKey.* and token.* settings.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid jwt configuration")
	}

	return newJWTService(cfg.SecretKey.Access, cfg.SecretKey.Refresh, cfg.Token.AccessTTL, cfg.Token.RefreshTTL, time.Now), nil
}

func newJWTService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *jwtService {
	return &jwtService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}
}

// SignAccessToken signs the payload with a fresh correlation id; payload.UUID and
// payload.ExpiresAt are ignored.
func (s *jwtService) SignAccessToken(payload *entity.AccessTokenPayload) (string, error) {
	claims := &accessClaims{
		UserID:           payload.UserID.String(),
		RoleID:           payload.RoleID.String(),
		RoleName:         payload.RoleName,
		DeviceID:         payload.DeviceID.String(),
		UUID:             uuid.NewString(),
		RegisteredClaims: s.registeredClaims(s.accessTTL),
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}

	return signed, nil
}

func (s *jwtService) VerifyAccessToken(token string) (*entity.AccessTokenPayload, error) {
	claims := &accessClaims{}
	if err := s.parse(token, claims, s.accessSecret); err != nil {
		return nil, err
	}

	userID, errUser := uuid.Parse(claims.UserID)
	roleID, errRole := uuid.Parse(claims.RoleID)
	deviceID, errDevice := uuid.Parse(claims.DeviceID)
	if errUser != nil || errRole != nil || errDevice != nil {
		return nil, errors.Wrap(service.ErrInvalidToken, "malformed access token claims")
	}

	return &entity.AccessTokenPayload{
		UserID:    userID,
		RoleID:    roleID,
		RoleName:  claims.RoleName,
		DeviceID:  deviceID,
		UUID:      claims.UUID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *jwtService) SignRefreshToken(payload *entity.RefreshTokenPayload) (string, error) {
	claims := &refreshClaims{
		UserID:           payload.UserID.String(),
		UUID:             uuid.NewString(),
		RegisteredClaims: s.registeredClaims(s.refreshTTL),
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign refresh token")
	}

	return signed, nil
}

func (s *jwtService) VerifyRefreshToken(token string) (*entity.RefreshTokenPayload, error) {
	claims := &refreshClaims{}
	if err := s.parse(token, claims, s.refreshSecret); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.Wrap(service.ErrInvalidToken, "malformed refresh token claims")
	}

	return &entity.RefreshTokenPayload{
		UserID:    userID,
		UUID:      claims.UUID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *jwtService) registeredClaims(ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()

	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// parse checks signature, algorithm and expiry in one pass.
func (s *jwtService) parse(token string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return errors.Wrap(service.ErrInvalidToken, err.Error())
	}

	return nil
}
