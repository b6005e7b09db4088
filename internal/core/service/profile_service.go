package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
)

// ProfileService is self-service for the authenticated principal.
type ProfileService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
}

func NewProfileService(repo ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger) *ProfileService {
	return &ProfileService{repo: repo, hasher: hasher, log: log}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *ProfileService) Update(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	fields := map[string]string{}
	var update domain.UserUpdate
	if in.Name != nil {
		name := validateName(fields, *in.Name, true)
		update.Name = &name
	}
	if in.Email != nil {
		email := validateEmail(fields, *in.Email, true)
		update.Email = &email
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	if update.IsEmpty() {
		return s.repo.FindByID(ctx, userID)
	}

	user, err := s.repo.Update(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Msg("profile updated")
	return user, nil
}

func (s *ProfileService) ChangePassword(ctx context.Context, userID, current, next string) error {
	fields := map[string]string{}
	if current == "" {
		fields["currentPassword"] = "currentPassword is required"
	}
	validatePassword(fields, "newPassword", next)
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return domain.ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, userID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}
