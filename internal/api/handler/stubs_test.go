package handler

import (
	"context"
	"io"
	"net/http/httptest"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-service/internal/api/middleware"
	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/query"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	forgotFn   func(ctx context.Context, email, resetURL string) error
	resetFn    func(ctx context.Context, token, password string) error
	logoutFn   func(ctx context.Context, claims *ports.TokenClaims) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email, resetURL string) error {
	return s.forgotFn(ctx, email, resetURL)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, token, password string) error {
	return s.resetFn(ctx, token, password)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*ports.Principal, error) {
	return nil, domain.ErrInvalidToken
}

func (s *stubAuthService) Logout(ctx context.Context, claims *ports.TokenClaims) error {
	return s.logoutFn(ctx, claims)
}

type stubProfileService struct {
	getFn            func(ctx context.Context, id string) (*domain.User, error)
	updateFn         func(ctx context.Context, id string, in ports.UpdateProfileInput) (*domain.User, error)
	changePasswordFn func(ctx context.Context, id, current, next string) error
}

func (s *stubProfileService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubProfileService) Update(ctx context.Context, id string, in ports.UpdateProfileInput) (*domain.User, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubProfileService) ChangePassword(ctx context.Context, id, current, next string) error {
	return s.changePasswordFn(ctx, id, current, next)
}

type stubUserService struct {
	listFn        func(ctx context.Context, p query.Params) (*ports.ListUsersResult, error)
	exportFn      func(ctx context.Context, p query.Params) ([]*domain.User, error)
	getFn         func(ctx context.Context, id string) (*domain.User, error)
	createFn      func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	updateFn      func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn      func(ctx context.Context, id string) error
	setActiveFn   func(ctx context.Context, id string, active bool) (*domain.User, error)
	setPasswordFn func(ctx context.Context, id, password string) (*domain.User, error)
}

func (s *stubUserService) List(ctx context.Context, p query.Params) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, p)
}

func (s *stubUserService) Export(ctx context.Context, p query.Params) ([]*domain.User, error) {
	return s.exportFn(ctx, p)
}

func (s *stubUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubUserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubUserService) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	return s.setActiveFn(ctx, id, active)
}

func (s *stubUserService) SetPassword(ctx context.Context, id, password string) (*domain.User, error) {
	return s.setPasswordFn(ctx, id, password)
}

// newContext builds an echo context with the validator installed, optionally
// authenticated as user.
func newContext(method, target string, body io.Reader, user *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.ContextPrincipal, &ports.Principal{
			User:   user,
			Claims: &ports.TokenClaims{UserID: user.ID, TokenID: "jti-1"},
		})
	}
	return c, rec
}
