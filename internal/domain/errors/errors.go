package errors

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// FieldViolation points a validation-shaped error at the request field that caused it.
type FieldViolation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int             // HTTP status code
	ErrorCode() string         // Business error code
	Message() string           // User-friendly error message
	Details() []FieldViolation // Offending request fields, empty unless the error is validation-shaped
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	paths     []string
}

// NewBaseError creates a new base error. paths names the request fields the error refers to.
func NewBaseError(httpCode int, errorCode, message string, paths ...string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		paths:     paths,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns one violation per field path.
func (e *BaseError) Details() []FieldViolation {
	if len(e.paths) == 0 {
		return nil
	}

	violations := make([]FieldViolation, 0, len(e.paths))
	for _, path := range e.paths {
		violations = append(violations, FieldViolation{Path: path, Message: e.errorCode})
	}

	return violations
}

// Validation-shaped errors (422)
var (
	ErrEmailAlreadyExists = NewBaseError(
		http.StatusUnprocessableEntity,
		"EMAIL_ALREADY_EXISTS",
		"Email is already registered",
		"email",
	)

	ErrEmailNotFound = NewBaseError(
		http.StatusUnprocessableEntity,
		"EMAIL_NOT_FOUND",
		"Email is not registered",
		"email",
	)

	ErrInvalidPassword = NewBaseError(
		http.StatusUnprocessableEntity,
		"INVALID_PASSWORD",
		"Password is incorrect",
		"password",
	)

	ErrInvalidOTP = NewBaseError(
		http.StatusUnprocessableEntity,
		"INVALID_OTP",
		"Verification code is invalid",
		"code",
	)

	ErrOTPExpired = NewBaseError(
		http.StatusUnprocessableEntity,
		"OTP_EXPIRED",
		"Verification code has expired",
		"code",
	)

	ErrFailedToSendOTP = NewBaseError(
		http.StatusUnprocessableEntity,
		"FAILED_TO_SEND_OTP",
		"Failed to send verification code",
		"code",
	)

	ErrAlreadyEnabled2FA = NewBaseError(
		http.StatusUnprocessableEntity,
		"ALREADY_ENABLED_2FA",
		"Two-factor authentication is already enabled",
		"totpCode",
	)

	ErrNotEnabled2FA = NewBaseError(
		http.StatusUnprocessableEntity,
		"NOT_ENABLED_2FA",
		"Two-factor authentication is not enabled",
		"totpCode",
	)

	ErrInvalidTOTP = NewBaseError(
		http.StatusUnprocessableEntity,
		"INVALID_TOTP",
		"Authenticator code is invalid",
		"totpCode",
	)

	ErrTOTPOrCodeRequired = NewBaseError(
		http.StatusUnprocessableEntity,
		"TOTP_OR_CODE_REQUIRED",
		"An authenticator code or an email verification code is required",
		"totpCode", "code",
	)

	ErrInvalidTOTPAndCode = NewBaseError(
		http.StatusUnprocessableEntity,
		"INVALID_TOTP_AND_CODE",
		"Provide exactly one of authenticator code or email verification code",
		"totpCode", "code",
	)

	ErrGoogleUserInfo = NewBaseError(
		http.StatusUnprocessableEntity,
		"FAILED_TO_GET_GOOGLE_USER_INFO",
		"Failed to read the Google profile",
		"email",
	)

	ErrValidationFailed = NewBaseError(
		http.StatusUnprocessableEntity,
		"VALIDATION_FAILED",
		"Request validation failed",
	)
)

// Authentication errors (401)
var (
	ErrMissingAccessToken = NewBaseError(
		http.StatusUnauthorized,
		"MISSING_ACCESS_TOKEN",
		"Access token is missing",
	)

	ErrInvalidAccessToken = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_ACCESS_TOKEN",
		"Access token is invalid",
	)

	ErrInvalidAPIKey = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_API_KEY",
		"API key is invalid",
	)

	ErrRefreshTokenAlreadyUsed = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_TOKEN_ALREADY_USED",
		"Refresh token has already been used",
	)

	ErrUnauthorizedAccess = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED_ACCESS",
		"Unauthorized access",
	)

	ErrUnauthorized = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"Unauthorized",
	)

	ErrInvalidOAuthState = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_OAUTH_STATE",
		"OAuth state is invalid or expired",
	)
)

// Other errors
var (
	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Access denied",
	)

	ErrUserNotFound = NewBaseError(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"User not found",
	)

	ErrDeviceNotFound = NewBaseError(
		http.StatusNotFound,
		"DEVICE_NOT_FOUND",
		"Device not found",
		"id",
	)

	ErrTooManyOTPRequests = NewBaseError(
		http.StatusTooManyRequests,
		"TOO_MANY_OTP_REQUESTS",
		"Too many verification codes requested, try again later",
		"email",
	)

	ErrTooManyRequests = NewBaseError(
		http.StatusTooManyRequests,
		"TOO_MANY_REQUESTS",
		"Too many requests, try again later",
	)

	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
	)
)

// ValidationError carries per-field violations produced by request validation.
type ValidationError struct {
	violations []FieldViolation
}

// NewValidationError creates a validation error for the given violations.
func NewValidationError(violations []FieldViolation) AppError {
	return &ValidationError{violations: violations}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	paths := make([]string, 0, len(e.violations))
	for _, v := range e.violations {
		paths = append(paths, v.Path)
	}

	return "validation failed: " + strings.Join(paths, ", ")
}

// Is lets callers match any ValidationError against ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func (e *ValidationError) HTTPCode() int {
	return ErrValidationFailed.HTTPCode()
}

func (e *ValidationError) ErrorCode() string {
	return ErrValidationFailed.ErrorCode()
}

func (e *ValidationError) Message() string {
	return ErrValidationFailed.Message()
}

func (e *ValidationError) Details() []FieldViolation {
	return e.violations
}

// IsAppError reports whether err carries a recognized application error kind.
func IsAppError(err error) bool {
	var appErr AppError

	return errors.As(err, &appErr)
}
