package ports

import (
	"context"

	"github.com/99minutos/user-service/internal/core/domain"
)

// RegisterInput carries self-registration data.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is a fresh bearer token with the authenticated user.
type LoginResult struct {
	Token string
	User  *domain.User
}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	User   *domain.User
	Claims *TokenClaims
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email, resetURL string) error
	ResetPassword(ctx context.Context, token, password string) error
	Authenticate(ctx context.Context, token string) (*Principal, error)
	Logout(ctx context.Context, claims *TokenClaims) error
}
