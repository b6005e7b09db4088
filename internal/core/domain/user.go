package domain

import (
	"strings"
	"time"
)

// User models an account in the credential store.
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	Active            bool       `json:"active"`
	ResetToken        string     `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HasValidResetToken reports whether token matches the stored reset token and
// has not expired at now. An expired token counts as absent.
func (u *User) HasValidResetToken(token string, now time.Time) bool {
	if u.ResetToken == "" || token == "" || u.ResetToken != token {
		return false
	}
	return u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now)
}

// UserUpdate is a partial mutation; nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	Role         *string
	Active       *bool
	PasswordHash *string
}

// IsEmpty reports whether the update carries no changes.
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil && u.Active == nil && u.PasswordHash == nil
}

// NormalizeEmail trims and lower-cases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
