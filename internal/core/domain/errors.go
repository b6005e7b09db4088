package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrInvalidToken         = errors.New("invalid token")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrInvalidResetToken    = errors.New("invalid or expired token")
	ErrIncorrectPassword    = errors.New("current password is incorrect")
	ErrForbidden            = errors.New("insufficient permissions")
)

// ValidationError carries a per-field message map for malformed input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
