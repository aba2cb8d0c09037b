package usecase

import (
	"context"

	"storefront/internal/domain/service"

	"github.com/pkg/errors"
)

// MailUsecase turns queued mail events into delivered messages.
type MailUsecase interface {
	DeliverOTP(ctx context.Context, event *service.OTPMailEvent) error
}

// ErrInvalidMailEvent marks an event that can never be delivered; retrying it is pointless.
var ErrInvalidMailEvent = errors.New("invalid mail event")
