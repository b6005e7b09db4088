package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/api/metrics"
	"github.com/99minutos/user-service/internal/core/domain"
)

// Authorizer answers whether a role may perform an action.
type Authorizer interface {
	Authorize(role, action string) bool
}

// RequirePermission enforces the permission table for one action. It must
// run after Authenticate.
func RequirePermission(authz Authorizer, action string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Check(c, authz, action, log); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// Check runs a single access decision for the current principal. Handlers
// use it directly when the required permission depends on the request.
func Check(c echo.Context, authz Authorizer, action string, log zerolog.Logger) error {
	p := PrincipalFrom(c)
	if p == nil || p.User == nil {
		return domain.ErrUnauthenticated
	}

	if !authz.Authorize(p.User.Role, action) {
		metrics.AccessDecisionsTotal.WithLabelValues(action, "deny").Inc()
		log.Warn().
			Str("user_id", p.User.ID).
			Str("role", p.User.Role).
			Str("permission", action).
			Str("path", c.Path()).
			Msg("access denied")
		return domain.ErrForbidden
	}

	metrics.AccessDecisionsTotal.WithLabelValues(action, "allow").Inc()
	return nil
}
