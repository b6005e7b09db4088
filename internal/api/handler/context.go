package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-service/internal/api/middleware"
	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
)

// ctxPrincipal returns the caller injected by the Authenticate middleware.
// A missing principal means the route was wired without authentication.
func ctxPrincipal(c echo.Context) (*ports.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil || p.User == nil {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}
