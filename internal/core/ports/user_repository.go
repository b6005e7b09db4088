package ports

import (
	"context"
	"time"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/query"
)

// UserRepository is the credential store. Implementations translate storage
// constraint violations into domain errors: a duplicate email becomes
// domain.ErrEmailExists, a missing row domain.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error

	SetLastLogin(ctx context.Context, id string, at time.Time) error
	// SetResetToken stores token and its expiry, replacing any earlier token.
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	// ConsumeResetToken atomically replaces the password hash and clears the
	// reset token of the user whose token matches and has not expired at now.
	// It returns domain.ErrInvalidResetToken when no such user exists.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) error

	// List returns the requested page and the total number of matches.
	// When q.Unpaged is set every match is returned.
	List(ctx context.Context, q query.UserQuery) ([]*domain.User, int64, error)
}
