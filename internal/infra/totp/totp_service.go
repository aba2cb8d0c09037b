// Package totp implements RFC 6238 authenticator codes on top of github.com/pquerna/otp.
package totp

import (
	"time"

	"storefront/config"
	"storefront/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	period     = 30
	skew       = 1
	secretSize = 20
)

type totpService struct {
	issuer string
	now    func() time.Time
}

func NewTOTPService(cfg *config.Config) service.TwoFactorService {
	return newTOTPService(cfg.TOTP.Issuer, time.Now)
}

func newTOTPService(issuer string, now func() time.Time) *totpService {
	return &totpService{issuer: issuer, now: now}
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret creates a random 160-bit secret labelled issuer:email.
func (s *totpService) GenerateSecret(email string) (*service.TOTPSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: email,
		Period:      period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate totp secret")
	}

	return &service.TOTPSecret{
		Secret: key.Secret(),
		URI:    key.URL(),
	}, nil
}

// Verify accepts codes from the current, previous and next 30 second step.
// Malformed codes and secrets are reported as a mismatch.
func (s *totpService) Verify(_ string, secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), validateOpts())
	if err != nil {
		return false
	}

	return ok
}
