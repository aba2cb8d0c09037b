package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/service"
	"storefront/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

var otpMailSubjects = map[entity.VerificationCodeType]string{
	entity.VerificationCodeRegister:       "Verify your email address",
	entity.VerificationCodeLogin:          "Your sign-in code",
	entity.VerificationCodeForgotPassword: "Reset your password",
	entity.VerificationCodeDisable2FA:     "Disable two-factor authentication",
}

// mailService implements the MailUsecase interface.
type mailService struct {
	sender service.MailSender
	logger *slog.Logger
}

// MailServiceParams holds dependencies for MailService, injected by Fx.
type MailServiceParams struct {
	fx.In

	Sender service.MailSender
	Logger *slog.Logger
}

// NewMailService is the constructor for mailService.
func NewMailService(params MailServiceParams) usecase.MailUsecase {
	return &mailService{
		sender: params.Sender,
		logger: params.Logger,
	}
}

func (srv *mailService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// DeliverOTP renders and sends a verification code mail. Malformed events wrap ErrInvalidMailEvent.
func (srv *mailService) DeliverOTP(ctx context.Context, event *service.OTPMailEvent) error {
	if event == nil || strings.TrimSpace(event.Email) == "" || strings.TrimSpace(event.Code) == "" {
		return errors.Wrap(usecase.ErrInvalidMailEvent, "email and code are required")
	}

	codeType := entity.VerificationCodeType(event.Type)
	subject, ok := otpMailSubjects[codeType]
	if !ok {
		return errors.Wrapf(usecase.ErrInvalidMailEvent, "unknown code type %q", event.Type)
	}

	mail := &service.Mail{
		To:      event.Email,
		Subject: subject,
		Body:    renderOTPBody(event),
	}

	if err := srv.sender.Send(ctx, mail); err != nil {
		return errors.Wrap(err, "failed to deliver verification code")
	}

	srv.log(ctx).Info("Verification code delivered",
		slog.String("email", event.Email),
		slog.String("type", event.Type),
	)

	return nil
}

func renderOTPBody(event *service.OTPMailEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your verification code is %s.\n", event.Code)
	if event.ExpiresAt > 0 {
		fmt.Fprintf(&b, "It expires at %s.\n", time.Unix(event.ExpiresAt, 0).UTC().Format(time.RFC1123))
	}
	b.WriteString("\nIf you did not request this code, you can ignore this email.\n")

	return b.String()
}
