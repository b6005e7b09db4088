package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/query"
)

// UserService implements administrative user management.
type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of users matching params.
func (s *UserService) List(ctx context.Context, params query.Params) (*ports.ListUsersResult, error) {
	q, err := query.Build(params)
	if err != nil {
		return nil, err
	}

	users, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &ports.ListUsersResult{
		Users:      users,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: query.TotalPages(total, q.Limit),
	}, nil
}

// Export returns every user matching the filter part of params. Paging and
// the requested sort are ignored; rows come back in creation order.
func (s *UserService) Export(ctx context.Context, params query.Params) ([]*domain.User, error) {
	params.Page, params.Limit = 0, 0
	q, err := query.Build(params)
	if err != nil {
		return nil, err
	}
	q.Unpaged = true
	q.Sort = query.Sort{Field: query.DefaultSort}

	users, _, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	fields := map[string]string{}
	name := validateName(fields, in.Name, true)
	email := validateEmail(fields, in.Email, true)
	validatePassword(fields, "password", in.Password)
	validateRole(fields, in.Role)
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	now := s.now()
	user, err := s.repo.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user created")
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	fields := map[string]string{}
	update := domain.UserUpdate{Active: in.Active}
	if in.Name != nil {
		name := validateName(fields, *in.Name, true)
		update.Name = &name
	}
	if in.Email != nil {
		email := validateEmail(fields, *in.Email, true)
		update.Email = &email
	}
	if in.Role != nil {
		validateRole(fields, *in.Role)
		update.Role = in.Role
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	if update.IsEmpty() {
		return s.repo.FindByID(ctx, id)
	}

	user, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Msg("user updated")
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	user, err := s.repo.Update(ctx, id, domain.UserUpdate{Active: &active})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Bool("active", active).Msg("user activation changed")
	return user, nil
}

func (s *UserService) SetPassword(ctx context.Context, id, password string) (*domain.User, error) {
	fields := map[string]string{}
	validatePassword(fields, "password", password)
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Update(ctx, id, domain.UserUpdate{PasswordHash: &hash})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id).Msg("password set by administrator")
	return user, nil
}
