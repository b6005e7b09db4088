package ports

import (
	"context"
	"time"
)

// PasswordHasher produces and checks salted one-way digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify never fails on a malformed digest; it reports false instead.
	Verify(plaintext, digest string) bool
}

// TokenClaims is the identity carried by a bearer token.
type TokenClaims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies bearer tokens. Verify returns
// domain.ErrInvalidToken for every failure cause.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (*TokenClaims, error)
}

// TokenDenylist records revoked token ids until they would expire anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// PasswordResetNotice is the payload handed to the notification collaborator.
type PasswordResetNotice struct {
	Email     string
	Name      string
	ResetURL  string
	Token     string
	ExpiresAt time.Time
}

// Notifier delivers out-of-band messages to users.
type Notifier interface {
	SendPasswordReset(ctx context.Context, notice PasswordResetNotice) error
}
