package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/api/handler"
	"github.com/99minutos/user-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Keys are
// request field names, or "message" when the error is not tied to a field.
type errorResponse struct {
	Errors map[string]string `json:"errors"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"errors": {"<field>": "<message>"}}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, fields := resolveError(err, log, c)
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Errors: fields})
	}
}

func message(msg string) map[string]string {
	return map[string]string{"message": msg}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, map[string]string) {
	// Field-level input problems.
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Fields
	}

	// Handler-chosen status with a field map.
	var se *handler.StatusError
	if errors.As(err, &se) {
		return se.Code, se.Fields
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, message(fmt.Sprintf("%v", he.Message))
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrEmailExists):
		return http.StatusBadRequest, map[string]string{"email": err.Error()}
	case errors.Is(err, domain.ErrInvalidResetToken):
		return http.StatusBadRequest, map[string]string{"token": err.Error()}
	case errors.Is(err, domain.ErrIncorrectPassword):
		return http.StatusBadRequest, map[string]string{"currentPassword": err.Error()}
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, message(err.Error())
	case errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrRegistrationDisabled),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, message(err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, message(err.Error())
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, message("internal server error")
}
