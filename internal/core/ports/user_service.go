package ports

import (
	"context"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/query"
)

// CreateUserInput is an administrative account creation.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Active   *bool
}

// UpdateUserInput is an administrative partial update.
type UpdateUserInput struct {
	Name   *string
	Email  *string
	Role   *string
	Active *bool
}

// ListUsersResult is one page of a listing.
type ListUsersResult struct {
	Users      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type UserService interface {
	List(ctx context.Context, params query.Params) (*ListUsersResult, error)
	Export(ctx context.Context, params query.Params) ([]*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) (*domain.User, error)
	SetPassword(ctx context.Context, id, password string) (*domain.User, error)
}

// UpdateProfileInput is a self-service profile change.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}
