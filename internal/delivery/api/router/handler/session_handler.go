package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/delivery/api/response"
	deliverycontext "storefront/internal/delivery/context"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// SessionHandler exposes device sessions to their owners and session maintenance to operators
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

type RevokeDeviceRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// PurgeExpired removes expired refresh tokens and verification codes.
func (h *SessionHandler) PurgeExpired(c echo.Context) error {
	output, err := h.sessionUC.PurgeExpired(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output)
}

// ListDevices lists the caller's signed-in devices.
func (h *SessionHandler) ListDevices(c echo.Context) error {
	payload := deliverycontext.GetAccessTokenPayload(c)
	if payload == nil {
		return domainerrors.ErrUnauthorized
	}

	output, err := h.sessionUC.ListDevices(c.Request().Context(), payload.UserID, payload.DeviceID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output)
}

// RevokeDevice logs one of the caller's devices out.
func (h *SessionHandler) RevokeDevice(c echo.Context) error {
	payload := deliverycontext.GetAccessTokenPayload(c)
	if payload == nil {
		return domainerrors.ErrUnauthorized
	}

	var req RevokeDeviceRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	deviceID, err := uuid.Parse(req.ID)
	if err != nil {
		return domainerrors.NewValidationError([]domainerrors.FieldViolation{{Path: "id", Message: "must be a valid UUID"}})
	}

	output, err := h.sessionUC.RevokeDevice(c.Request().Context(), payload.UserID, deviceID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output)
}

func (h *SessionHandler) RevokeAllDevices(c echo.Context) error {
	payload := deliverycontext.GetAccessTokenPayload(c)
	if payload == nil {
		return domainerrors.ErrUnauthorized
	}

	output, err := h.sessionUC.RevokeAllDevices(c.Request().Context(), payload.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output)
}

func (h *SessionHandler) RevokeOtherDevices(c echo.Context) error {
	payload := deliverycontext.GetAccessTokenPayload(c)
	if payload == nil {
		return domainerrors.ErrUnauthorized
	}

	output, err := h.sessionUC.RevokeOtherDevices(c.Request().Context(), payload.UserID, payload.DeviceID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output)
}
