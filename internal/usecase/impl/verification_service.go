// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"storefront/config"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// verificationService implements the VerificationUsecase interface.
type verificationService struct {
	codeRepo repository.VerificationCodeRepository
	ttl      time.Duration
	random   io.Reader
	now      func() time.Time
	logger   *slog.Logger
}

// VerificationServiceParams holds dependencies for VerificationService, injected by Fx.
type VerificationServiceParams struct {
	fx.In

	CodeRepo repository.VerificationCodeRepository
	Config   *config.Config
	Logger   *slog.Logger
}

// NewVerificationService is the constructor for verificationService.
func NewVerificationService(params VerificationServiceParams) usecase.VerificationUsecase {
	return &verificationService{
		codeRepo: params.CodeRepo,
		ttl:      params.Config.OTP.TTL,
		random:   rand.Reader,
		now:      time.Now,
		logger:   params.Logger,
	}
}

func (srv *verificationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Generate draws uniformly from [0, 1000000) and left-pads to six digits.
func (srv *verificationService) Generate() (string, error) {
	n, err := rand.Int(srv.random, codeSpace)
	if err != nil {
		return "", errors.Wrap(err, "failed to draw verification code")
	}

	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// Issue stores a fresh code for (email, type), overwriting any outstanding one.
func (srv *verificationService) Issue(ctx context.Context, email string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	code, err := srv.Generate()
	if err != nil {
		return nil, err
	}

	verificationCode := &entity.VerificationCode{
		Email:     email,
		Code:      code,
		Type:      codeType,
		ExpiresAt: srv.now().Add(srv.ttl),
	}

	if err := srv.codeRepo.Upsert(ctx, verificationCode); err != nil {
		return nil, errors.Wrap(err, "failed to store verification code")
	}

	srv.log(ctx).Debug("Verification code issued",
		slog.String("email", email),
		slog.String("type", string(codeType)),
		slog.Time("expiresAt", verificationCode.ExpiresAt),
	)

	return verificationCode, nil
}

// Validate checks existence first and expiry second. It never consumes the code.
func (srv *verificationService) Validate(
	ctx context.Context,
	email, code string,
	codeType entity.VerificationCodeType,
) (*entity.VerificationCode, error) {
	verificationCode, err := srv.codeRepo.Find(ctx, email, code, codeType)
	if repository.OutcomeOf(err) == repository.OutcomeNotFound {
		return nil, domainerrors.ErrInvalidOTP
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load verification code")
	}

	if verificationCode.IsExpired(srv.now()) {
		return nil, domainerrors.ErrOTPExpired
	}

	return verificationCode, nil
}
