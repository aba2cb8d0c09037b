// Package context carries request-scoped values between echo handlers and the use-case layer.
package context

import (
	"context"
	"log/slog"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	KeyRequestID   ContextKey = "request_id"
	KeyLogger      ContextKey = "logger"
	KeyAccessToken ContextKey = "access_token"

	// HeaderXRequestID is the HTTP header name for request ID.
	HeaderXRequestID = "X-Request-Id"
)

// GetRequestID reads the request ID from echo.Context, generating one when absent.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(string(KeyRequestID)).(string); ok && id != "" {
		return id
	}

	return uuid.New().String()
}

func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(KeyRequestID), requestID)
}

// GetRequestIDFromContext returns the request ID or an empty string.
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(KeyRequestID).(string); ok {
		return id
	}

	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// GetLoggerOrDefault returns the request-scoped logger, or fallback outside a request.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}

// SetAccessTokenPayload stores the verified bearer token of the caller.
func SetAccessTokenPayload(c echo.Context, payload *entity.AccessTokenPayload) {
	c.Set(string(KeyAccessToken), payload)
	c.SetRequest(c.Request().WithContext(context.WithValue(c.Request().Context(), KeyAccessToken, payload)))
}

// GetAccessTokenPayload returns the verified bearer token, or nil on public routes.
func GetAccessTokenPayload(c echo.Context) *entity.AccessTokenPayload {
	if payload, ok := c.Get(string(KeyAccessToken)).(*entity.AccessTokenPayload); ok {
		return payload
	}

	return nil
}

// AccessTokenPayloadFromContext is GetAccessTokenPayload for code holding only a context.Context.
func AccessTokenPayloadFromContext(ctx context.Context) *entity.AccessTokenPayload {
	if payload, ok := ctx.Value(KeyAccessToken).(*entity.AccessTokenPayload); ok {
		return payload
	}

	return nil
}
