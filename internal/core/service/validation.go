package service

import (
	"net/mail"
	"strconv"
	"strings"

	"github.com/99minutos/user-service/internal/core/domain"
)

const (
	minPasswordLength = 6
	// bcrypt only accepts inputs up to 72 bytes.
	maxPasswordLength = 72
)

// These checks mirror the transport validation so the services keep their
// invariants when called directly.

func validateName(fields map[string]string, name string, required bool) string {
	name = strings.TrimSpace(name)
	if name == "" && required {
		fields["name"] = "name is required"
	}
	return name
}

func validateEmail(fields map[string]string, email string, required bool) string {
	email = domain.NormalizeEmail(email)
	if email == "" {
		if required {
			fields["email"] = "email is required"
		}
		return email
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		fields["email"] = "email must be a valid email"
	}
	return email
}

func validatePassword(fields map[string]string, field, password string) {
	if len(password) < minPasswordLength {
		fields[field] = field + " must be at least " + strconv.Itoa(minPasswordLength) + " characters"
	} else if len(password) > maxPasswordLength {
		fields[field] = field + " must be at most " + strconv.Itoa(maxPasswordLength) + " characters"
	}
}

func validateRole(fields map[string]string, role string) {
	if !domain.IsValidRole(role) {
		fields["role"] = "role must be one of: " + strings.Join(domain.Roles(), ", ")
	}
}
