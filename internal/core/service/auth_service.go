package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
)

const defaultResetTokenTTL = time.Hour

// AuthConfig is the immutable slice of configuration the auth flow needs.
type AuthConfig struct {
	DefaultRole       string
	AllowRegistration bool
	ResetTokenTTL     time.Duration
	// DefaultResetURL is used when the caller does not supply a reset URL.
	DefaultResetURL string
}

// AuthService implements registration, login and the password reset flow.
type AuthService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	notifier ports.Notifier
	denylist ports.TokenDenylist
	cfg      AuthConfig
	log      zerolog.Logger

	now        func() time.Time
	resetToken func() string

	dummyOnce sync.Once
	dummyHash string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithDenylist enables token revocation checks and Logout.
func WithDenylist(d ports.TokenDenylist) AuthOption {
	return func(s *AuthService) { s.denylist = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithResetTokenGenerator replaces the random reset token source.
func WithResetTokenGenerator(gen func() string) AuthOption {
	return func(s *AuthService) { s.resetToken = gen }
}

func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	notifier ports.Notifier,
	cfg AuthConfig,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleUser
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = defaultResetTokenTTL
	}
	s := &AuthService{
		repo:       repo,
		hasher:     hasher,
		tokens:     tokens,
		notifier:   notifier,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		resetToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RevocationEnabled reports whether Logout has any effect.
func (s *AuthService) RevocationEnabled() bool {
	return s.denylist != nil
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if !s.cfg.AllowRegistration {
		return nil, domain.ErrRegistrationDisabled
	}

	fields := map[string]string{}
	name := validateName(fields, in.Name, true)
	email := validateEmail(fields, in.Email, true)
	validatePassword(fields, "password", in.Password)
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         s.cfg.DefaultRole,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user registered")
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Keep the unknown-email path as slow as a wrong password.
			s.hasher.Verify(password, s.dummyDigest())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Info().Str("user_id", user.ID).Msg("login rejected: wrong password")
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		s.log.Info().Str("user_id", user.ID).Msg("login rejected: inactive account")
		return nil, domain.ErrAccountInactive
	}

	now := s.now()
	if err := s.repo.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("login: update last login: %w", err)
	}
	user.LastLogin = &now

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("login succeeded")
	return &ports.LoginResult{Token: token, User: user}, nil
}

// ForgotPassword issues a fresh single-use reset token, superseding any
// previous one, and hands it to the notifier. Unknown emails yield
// domain.ErrUserNotFound immediately.
func (s *AuthService) ForgotPassword(ctx context.Context, email, resetURL string) error {
	email = domain.NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("forgot password: %w", err)
	}

	token := s.resetToken()
	expires := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return fmt.Errorf("forgot password: store token: %w", err)
	}

	if resetURL == "" {
		resetURL = s.cfg.DefaultResetURL
	}
	notice := ports.PasswordResetNotice{
		Email:     user.Email,
		Name:      user.Name,
		ResetURL:  resetURL,
		Token:     token,
		ExpiresAt: expires,
	}
	if err := s.notifier.SendPasswordReset(ctx, notice); err != nil {
		return fmt.Errorf("forgot password: notify: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Time("expires_at", expires).Msg("password reset issued")
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	fields := map[string]string{}
	validatePassword(fields, "password", password)
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	if token == "" {
		return domain.ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	if err := s.repo.ConsumeResetToken(ctx, token, s.now(), hash); err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Msg("password reset completed")
	return nil
}

// Authenticate resolves a bearer token to its user. The user is reloaded
// from the store so role changes apply to existing tokens.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*ports.Principal, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	if s.denylist != nil && claims.TokenID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, fmt.Errorf("authenticate: check revocation: %w", err)
		}
		if revoked {
			return nil, domain.ErrInvalidToken
		}
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return &ports.Principal{User: user, Claims: claims}, nil
}

// Logout revokes the presented token until its natural expiry. Without a
// denylist it is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *ports.TokenClaims) error {
	if s.denylist == nil || claims == nil || claims.TokenID == "" {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("user_id", claims.UserID).Msg("token revoked")
	return nil
}

func (s *AuthService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prepare dummy hash")
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
