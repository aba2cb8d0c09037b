package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"storefront/config"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/service"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// HeaderAPIKey carries the shared key accepted by the API key guard.
const HeaderAPIKey = "x-api-key"

// AuthType is a credential kind a route accepts.
type AuthType string

const (
	AuthBearer AuthType = "BEARER"
	AuthAPIKey AuthType = "API_KEY"
	AuthNone   AuthType = "NONE"
)

// Combinator decides how the guards of a policy combine.
type Combinator string

const (
	// CombineAnd requires every guard to pass, in order.
	CombineAnd Combinator = "AND"
	// CombineOr stops at the first guard that passes.
	CombineOr Combinator = "OR"
)

// Policy is the declared credential requirement of one route.
type Policy struct {
	Types      []AuthType
	Combinator Combinator
}

// Public accepts every request.
func Public() Policy {
	return Policy{Types: []AuthType{AuthNone}, Combinator: CombineAnd}
}

// BearerOnly is the policy of routes that declare nothing.
func BearerOnly() Policy {
	return Policy{Types: []AuthType{AuthBearer}, Combinator: CombineAnd}
}

// AllOf requires every listed credential.
func AllOf(types ...AuthType) Policy {
	return Policy{Types: types, Combinator: CombineAnd}
}

// AnyOf accepts any one of the listed credentials.
func AnyOf(types ...AuthType) Policy {
	return Policy{Types: types, Combinator: CombineOr}
}

// Requires reports whether the policy evaluates the given guard.
func (p Policy) Requires(authType AuthType) bool {
	for _, t := range p.normalized().Types {
		if t == authType {
			return true
		}
	}

	return false
}

func (p Policy) normalized() Policy {
	if len(p.Types) == 0 {
		return BearerOnly()
	}
	if p.Combinator == "" {
		p.Combinator = CombineAnd
	}

	return p
}

// Guard checks one credential kind on a request.
type Guard interface {
	Check(c echo.Context) error
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(c echo.Context) error

func (f GuardFunc) Check(c echo.Context) error {
	return f(c)
}

// AuthorizationParams holds dependencies for AuthorizationMiddleware, injected by Fx.
type AuthorizationParams struct {
	fx.In

	TokenService service.TokenService
	PermissionUC usecase.PermissionUsecase
	Config       *config.Config
	Logger       *slog.Logger
}

// AuthorizationMiddleware evaluates route policies against the registered guards.
type AuthorizationMiddleware struct {
	guards map[AuthType]Guard
	logger *slog.Logger
}

// NewAuthorizationMiddleware wires the bearer, API key and public guards.
func NewAuthorizationMiddleware(params AuthorizationParams) *AuthorizationMiddleware {
	return newAuthorizationMiddleware(map[AuthType]Guard{
		AuthBearer: &bearerGuard{tokenService: params.TokenService, permissionUC: params.PermissionUC},
		AuthAPIKey: &apiKeyGuard{apiKey: []byte(params.Config.SecretKey.APIKey)},
		AuthNone:   GuardFunc(func(echo.Context) error { return nil }),
	}, params.Logger)
}

func newAuthorizationMiddleware(guards map[AuthType]Guard, logger *slog.Logger) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{guards: guards, logger: logger}
}

// Require returns a middleware enforcing policy on a single route.
func (m *AuthorizationMiddleware) Require(policy Policy) echo.MiddlewareFunc {
	policy = policy.normalized()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := m.evaluate(c, policy); err != nil {
				ctx := c.Request().Context()
				deliverycontext.GetLoggerOrDefault(ctx, m.logger).DebugContext(ctx, "Request not authorized",
					slog.String("route", c.Path()),
					slog.String("combinator", string(policy.Combinator)),
					slog.Any("error", err),
				)

				return err
			}

			return next(c)
		}
	}
}

func (m *AuthorizationMiddleware) evaluate(c echo.Context, policy Policy) error {
	if policy.Combinator == CombineOr {
		var lastTyped error
		for _, authType := range policy.Types {
			err := m.check(c, authType)
			if err == nil {
				return nil
			}
			if isAuthorizationError(err) {
				lastTyped = err
			}
		}
		if lastTyped != nil {
			return lastTyped
		}

		return domainerrors.ErrUnauthorized
	}

	for _, authType := range policy.Types {
		if err := m.check(c, authType); err != nil {
			if isAuthorizationError(err) {
				return err
			}

			return domainerrors.ErrUnauthorized
		}
	}

	return nil
}

func (m *AuthorizationMiddleware) check(c echo.Context, authType AuthType) error {
	guard, ok := m.guards[authType]
	if !ok {
		return errors.Errorf("no guard registered for %s", authType)
	}

	return guard.Check(c)
}

// isAuthorizationError reports whether err is a typed 401 or 403.
func isAuthorizationError(err error) bool {
	var appErr domainerrors.AppError
	if !errors.As(err, &appErr) {
		return false
	}

	return appErr.HTTPCode() == http.StatusUnauthorized || appErr.HTTPCode() == http.StatusForbidden
}

// bearerGuard authenticates the access token and then checks the role's permission
// for the matched route.
type bearerGuard struct {
	tokenService service.TokenService
	permissionUC usecase.PermissionUsecase
}

func (g *bearerGuard) Check(c echo.Context) error {
	token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return domainerrors.ErrMissingAccessToken
	}

	payload, err := g.tokenService.VerifyAccessToken(token)
	if err != nil {
		return domainerrors.ErrInvalidAccessToken
	}

	deliverycontext.SetAccessTokenPayload(c, payload)

	method, ok := entity.ParseHTTPMethod(c.Request().Method)
	if !ok {
		return domainerrors.ErrForbidden
	}

	return g.permissionUC.CheckPermission(c.Request().Context(), payload.RoleID, method, c.Path())
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

type apiKeyGuard struct {
	apiKey []byte
}

func (g *apiKeyGuard) Check(c echo.Context) error {
	provided := c.Request().Header.Get(HeaderAPIKey)
	if len(g.apiKey) == 0 || provided == "" {
		return domainerrors.ErrInvalidAPIKey
	}

	if subtle.ConstantTimeCompare([]byte(provided), g.apiKey) != 1 {
		return domainerrors.ErrInvalidAPIKey
	}

	return nil
}
