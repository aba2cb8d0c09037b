// Package handler contains the HTTP handlers of the API server.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"storefront/config"
	"storefront/internal/delivery/api/response"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/service"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Config *config.Config
	Logger *slog.Logger
}

const (
	// OAuthNonceCookie holds the state nonce between google-link and the callback.
	OAuthNonceCookie     = "oauth_nonce"
	oauthNonceCookiePath = "/auth/google"
)

// AuthHandler holds dependencies for authentication handlers
type AuthHandler struct {
	authUC            usecase.AuthUsecase
	clientRedirectURI string
	stateTTL          time.Duration
	logger            *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:            params.AuthUC,
		clientRedirectURI: params.Config.GoogleOAuth.ClientRedirectURI,
		stateTTL:          params.Config.GoogleOAuth.StateTTL,
		logger:            params.Logger,
	}
}

type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Name            string `json:"name" validate:"required,max=100"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	PhoneNumber     string `json:"phoneNumber" validate:"omitempty,max=20"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
}

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"required,oneof=REGISTER LOGIN FORGOT_PASSWORD DISABLE_2FA"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totpCode" validate:"omitempty,len=6,numeric"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type Disable2FARequest struct {
	TOTPCode string `json:"totpCode" validate:"omitempty,len=6,numeric"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
}

type GoogleCallbackRequest struct {
	Code  string `query:"code"`
	State string `query:"state"`
}

// GoogleLinkResponse carries the consent screen URL.
type GoogleLinkResponse struct {
	URL string `json:"url"`
}

// bind decodes and validates a request body. A non-nil error has already been
// rendered or is left to the error handler.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, response.BindingError(c, "Invalid request body")
	}

	if err := c.Validate(req); err != nil {
		return false, errors.WithStack(err)
	}

	return true, nil
}

func clientInfo(c echo.Context) service.ClientInfo {
	return service.ClientInfo{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
}

// Register handles client sign-up with a REGISTER code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	output, err := h.authUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Code:        req.Code,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, output)
}

// SendOTP emails a verification code for one intent.
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req SendOTPRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	err := h.authUC.SendOTP(c.Request().Context(), &usecase.SendOTPInput{
		Email: req.Email,
		Type:  entity.VerificationCodeType(req.Type),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, "Verification code sent")
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	tokens, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: req.TOTPCode,
		Code:     req.Code,
		Client:   clientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, tokens)
}

// RefreshToken rotates the presented refresh token. Answers 200, not 201.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	tokens, err := h.authUC.RefreshToken(c.Request().Context(), &usecase.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
		Client:       clientInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshTokenRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.authUC.Logout(c.Request().Context(), &usecase.LogoutInput{RefreshToken: req.RefreshToken}); err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, "Logged out")
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	err := h.authUC.ForgotPassword(c.Request().Context(), &usecase.ForgotPasswordInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, "Password updated")
}

// Setup2FA binds an authenticator to the caller's account.
func (h *AuthHandler) Setup2FA(c echo.Context) error {
	payload := deliverycontext.GetAccessTokenPayload(c)
	if payload == nil {
		return domainerrors.ErrUnauthorized
	}

	output, err := h.authUC.Setup2FA(c.Request().Context(), payload.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output)
}

func (h *AuthHandler) Disable2FA(c echo.Context) error {
	payload := deliverycontext.GetAccessTokenPayload(c)
	if payload == nil {
		return domainerrors.ErrUnauthorized
	}

	var req Disable2FARequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	err := h.authUC.Disable2FA(c.Request().Context(), &usecase.Disable2FAInput{
		UserID:   payload.UserID,
		TOTPCode: req.TOTPCode,
		Code:     req.Code,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, "Two-factor authentication disabled")
}

// GoogleLink returns the Google consent screen URL for the calling client and pins the
// state nonce to the browser in an HttpOnly cookie.
func (h *AuthHandler) GoogleLink(c echo.Context) error {
	link, err := h.authUC.GoogleAuthorizationURL(c.Request().Context(), clientInfo(c))
	if err != nil {
		return errors.WithStack(err)
	}

	h.setNonceCookie(c, link.Nonce, int(h.stateTTL.Seconds()))

	return response.Success(c, http.StatusOK, GoogleLinkResponse{URL: link.URL})
}

// setNonceCookie writes the nonce cookie; a negative maxAge deletes it. Lax lets the
// cookie ride the top-level redirect back from Google.
func (h *AuthHandler) setNonceCookie(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     OAuthNonceCookie,
		Value:    value,
		Path:     oauthNonceCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// GoogleCallback finishes the Google flow and sends the browser back to the client
// with either the token pair or an error message in the query.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	var nonce string
	if cookie, err := c.Cookie(OAuthNonceCookie); err == nil {
		nonce = cookie.Value
	}
	// The nonce is single-use whatever the outcome.
	h.setNonceCookie(c, "", -1)

	var req GoogleCallbackRequest
	if err := c.Bind(&req); err != nil {
		return h.redirectWithError(c, "Invalid callback parameters")
	}
	if req.Code == "" || req.State == "" {
		return h.redirectWithError(c, "Missing code or state")
	}

	tokens, err := h.authUC.GoogleCallback(c.Request().Context(), &usecase.GoogleCallbackInput{
		Code:  req.Code,
		State: req.State,
		Nonce: nonce,
	})
	if err != nil {
		message := domainerrors.ErrInternalError.Message()

		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message()
		} else {
			ctx := c.Request().Context()
			deliverycontext.GetLoggerOrDefault(ctx, h.logger).ErrorContext(ctx, "Google callback failed", slog.Any("error", err))
		}

		return h.redirectWithError(c, message)
	}

	return h.redirect(c, url.Values{
		"accessToken":  {tokens.AccessToken},
		"refreshToken": {tokens.RefreshToken},
	})
}

func (h *AuthHandler) redirectWithError(c echo.Context, message string) error {
	return h.redirect(c, url.Values{"errorMessage": {message}})
}

func (h *AuthHandler) redirect(c echo.Context, query url.Values) error {
	target, err := url.Parse(h.clientRedirectURI)
	if err != nil || h.clientRedirectURI == "" {
		return errors.WithStack(domainerrors.ErrInternalError)
	}

	existing := target.Query()
	for key, values := range query {
		existing[key] = values
	}
	target.RawQuery = existing.Encode()

	return c.Redirect(http.StatusFound, target.String())
}
