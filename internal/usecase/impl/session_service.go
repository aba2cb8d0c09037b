package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "storefront/internal/delivery/context"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager        repository.TransactionManager
	refreshTokenRepo repository.RefreshTokenRepository
	codeRepo         repository.VerificationCodeRepository
	now              func() time.Time
	logger           *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	RefreshTokenRepo repository.RefreshTokenRepository
	CodeRepo         repository.VerificationCodeRepository
	Logger           *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		txManager:        params.TxManager,
		refreshTokenRepo: params.RefreshTokenRepo,
		codeRepo:         params.CodeRepo,
		now:              time.Now,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *sessionService) PurgeExpired(ctx context.Context) (*usecase.PurgeOutput, error) {
	now := srv.now()

	tokens, err := srv.refreshTokenRepo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to purge refresh tokens")
	}

	codes, err := srv.codeRepo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to purge verification codes")
	}

	srv.log(ctx).Info("Expired session state purged",
		slog.Int64("refreshTokens", tokens),
		slog.Int64("verificationCodes", codes),
	)

	return &usecase.PurgeOutput{RefreshTokens: tokens, VerificationCodes: codes}, nil
}

func (srv *sessionService) ListDevices(ctx context.Context, userID, currentDeviceID uuid.UUID) ([]*usecase.DeviceOutput, error) {
	var outputs []*usecase.DeviceOutput

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		devices, err := repoFactory.DeviceRepo().ListActiveByUser(ctx, userID)
		if err != nil {
			return err
		}

		outputs = make([]*usecase.DeviceOutput, 0, len(devices))
		for _, device := range devices {
			outputs = append(outputs, &usecase.DeviceOutput{
				ID:         device.ID,
				UserAgent:  device.UserAgent,
				IP:         device.IP,
				LastActive: device.LastActive,
				CreatedAt:  device.CreatedAt,
				Current:    device.ID == currentDeviceID,
			})
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	return outputs, nil
}

// RevokeDevice is idempotent for the owner: revoking an already logged-out device succeeds.
func (srv *sessionService) RevokeDevice(ctx context.Context, userID, deviceID uuid.UUID) (*usecase.RevokeOutput, error) {
	output := &usecase.RevokeOutput{}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		deviceRepo := repoFactory.DeviceRepo()

		device, err := deviceRepo.FindByID(ctx, deviceID)
		if repository.OutcomeOf(err) == repository.OutcomeNotFound {
			return domainerrors.ErrDeviceNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find device")
		}
		if device.UserID != userID {
			return domainerrors.ErrDeviceNotFound
		}

		output.RefreshTokens, err = repoFactory.RefreshTokenRepo().DeleteByDevice(ctx, deviceID)
		if err != nil {
			return err
		}

		if device.IsActive {
			if err := deviceRepo.Deactivate(ctx, deviceID); err != nil {
				return errors.Wrap(err, "failed to deactivate device")
			}
			output.Devices = 1
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Device revoked",
		slog.String("userID", userID.String()),
		slog.String("deviceID", deviceID.String()),
		slog.Int64("refreshTokens", output.RefreshTokens),
	)

	return output, nil
}

func (srv *sessionService) RevokeAllDevices(ctx context.Context, userID uuid.UUID) (*usecase.RevokeOutput, error) {
	return srv.revokeDevices(ctx, userID, uuid.Nil)
}

func (srv *sessionService) RevokeOtherDevices(ctx context.Context, userID, currentDeviceID uuid.UUID) (*usecase.RevokeOutput, error) {
	if currentDeviceID == uuid.Nil {
		return nil, domainerrors.ErrInvalidAccessToken
	}

	return srv.revokeDevices(ctx, userID, currentDeviceID)
}

// revokeDevices logs out every device of the user but keep; uuid.Nil keeps none.
func (srv *sessionService) revokeDevices(ctx context.Context, userID, keep uuid.UUID) (*usecase.RevokeOutput, error) {
	output := &usecase.RevokeOutput{}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error

		output.RefreshTokens, err = repoFactory.RefreshTokenRepo().DeleteByUser(ctx, userID, keep)
		if err != nil {
			return err
		}

		output.Devices, err = repoFactory.DeviceRepo().DeactivateByUser(ctx, userID, keep)

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to revoke devices")
	}

	srv.log(ctx).Info("Devices revoked",
		slog.String("userID", userID.String()),
		slog.Bool("keptCurrent", keep != uuid.Nil),
		slog.Int64("devices", output.Devices),
		slog.Int64("refreshTokens", output.RefreshTokens),
	)

	return output, nil
}
