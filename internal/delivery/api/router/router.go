// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"storefront/internal/delivery/api/middleware"
	"storefront/internal/delivery/api/router/handler"
	"storefront/internal/domain/entity"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	Authorization  *middleware.AuthorizationMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	handlers      handlers
	authorization *middleware.AuthorizationMiddleware
}

type handlers struct {
	auth    *handler.AuthHandler
	session *handler.SessionHandler
}

// route declares one endpoint together with its credential policy. Routes evaluated
// by the bearer guard get a permission row; ADMIN is granted all of them and Roles
// lists the other base roles allowed in.
type route struct {
	Method  entity.HTTPMethod
	Path    string
	Name    string
	Module  string
	Policy  middleware.Policy
	Roles   []string
	Limited bool // Subject to the public auth rate limit
	handle  func(h handlers) echo.HandlerFunc
}

const (
	moduleAuth    = "AUTH"
	moduleSession = "SESSION"
)

var selfService = []string{entity.RoleClient, entity.RoleSeller}

// routes is the single source of truth for the API surface and its policies.
var routes = []route{
	{Method: entity.MethodPost, Path: "/auth/register", Name: "Register", Module: moduleAuth, Policy: middleware.Public(), Limited: true,
		handle: func(h handlers) echo.HandlerFunc { return h.auth.Register }},
	{Method: entity.MethodPost, Path: "/auth/otp", Name: "Send OTP", Module: moduleAuth, Policy: middleware.Public(), Limited: true,
		handle: func(h handlers) echo.HandlerFunc { return h.auth.SendOTP }},
	{Method: entity.MethodPost, Path: "/auth/login", Name: "Login", Module: moduleAuth, Policy: middleware.Public(), Limited: true,
		handle: func(h handlers) echo.HandlerFunc { return h.auth.Login }},
	{Method: entity.MethodPost, Path: "/auth/refresh-token", Name: "Refresh token", Module: moduleAuth, Policy: middleware.Public(), Limited: true,
		handle: func(h handlers) echo.HandlerFunc { return h.auth.RefreshToken }},
	{Method: entity.MethodPost, Path: "/auth/logout", Name: "Logout", Module: moduleAuth, Policy: middleware.Public(),
		handle: func(h handlers) echo.HandlerFunc { return h.auth.Logout }},
	{Method: entity.MethodPost, Path: "/auth/forgot-password", Name: "Forgot password", Module: moduleAuth, Policy: middleware.Public(), Limited: true,
		handle: func(h handlers) echo.HandlerFunc { return h.auth.ForgotPassword }},
	{Method: entity.MethodPost, Path: "/auth/2fa/setup", Name: "Setup 2FA", Module: moduleAuth, Policy: middleware.BearerOnly(), Roles: selfService,
		handle: func(h handlers) echo.HandlerFunc { return h.auth.Setup2FA }},
	{Method: entity.MethodPost, Path: "/auth/2fa/disable", Name: "Disable 2FA", Module: moduleAuth, Policy: middleware.BearerOnly(), Roles: selfService,
		handle: func(h handlers) echo.HandlerFunc { return h.auth.Disable2FA }},
	{Method: entity.MethodGet, Path: "/auth/google-link", Name: "Google link", Module: moduleAuth, Policy: middleware.Public(),
		handle: func(h handlers) echo.HandlerFunc { return h.auth.GoogleLink }},
	{Method: entity.MethodGet, Path: "/auth/google/callback", Name: "Google callback", Module: moduleAuth, Policy: middleware.Public(),
		handle: func(h handlers) echo.HandlerFunc { return h.auth.GoogleCallback }},
	{Method: entity.MethodGet, Path: "/auth/devices", Name: "List devices", Module: moduleSession, Policy: middleware.BearerOnly(), Roles: selfService,
		handle: func(h handlers) echo.HandlerFunc { return h.session.ListDevices }},
	{Method: entity.MethodDelete, Path: "/auth/devices/:id", Name: "Revoke device", Module: moduleSession, Policy: middleware.BearerOnly(), Roles: selfService,
		handle: func(h handlers) echo.HandlerFunc { return h.session.RevokeDevice }},
	{Method: entity.MethodPost, Path: "/auth/devices/revoke-all", Name: "Revoke all devices", Module: moduleSession, Policy: middleware.BearerOnly(), Roles: selfService,
		handle: func(h handlers) echo.HandlerFunc { return h.session.RevokeAllDevices }},
	{Method: entity.MethodPost, Path: "/auth/devices/revoke-others", Name: "Revoke other devices", Module: moduleSession, Policy: middleware.BearerOnly(), Roles: selfService,
		handle: func(h handlers) echo.HandlerFunc { return h.session.RevokeOtherDevices }},
	{Method: entity.MethodPost, Path: "/admin/sessions/purge", Name: "Purge expired sessions", Module: moduleSession,
		Policy: middleware.AnyOf(middleware.AuthAPIKey, middleware.AuthBearer),
		handle: func(h handlers) echo.HandlerFunc { return h.session.PurgeExpired }},
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		handlers: handlers{
			auth:    params.AuthHandler,
			session: params.SessionHandler,
		},
		authorization: params.Authorization,
	}
}

// RegisterRoutes sets up all the API routes for the application. limiter, when not nil,
// guards the routes marked Limited.
func (r *router) RegisterRoutes(e *echo.Echo, limiter echo.MiddlewareFunc) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	for _, rt := range routes {
		middlewares := make([]echo.MiddlewareFunc, 0, 2)
		if rt.Limited && limiter != nil {
			middlewares = append(middlewares, limiter)
		}
		middlewares = append(middlewares, r.authorization.Require(rt.Policy))

		e.Add(string(rt.Method), rt.Path, rt.handle(r.handlers), middlewares...)
	}
}

// RouteGrants lists the routes behind the bearer guard for the seeder.
func RouteGrants() []usecase.RouteGrant {
	grants := make([]usecase.RouteGrant, 0, len(routes))
	for _, rt := range routes {
		if !rt.Policy.Requires(middleware.AuthBearer) {
			continue
		}

		grants = append(grants, usecase.RouteGrant{
			Name:   rt.Name,
			Module: rt.Module,
			Method: rt.Method,
			Path:   rt.Path,
			Roles:  rt.Roles,
		})
	}

	return grants
}
