package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/pkg/token"
)

type authFixture struct {
	repo     *stubUserRepo
	notifier *stubNotifier
	clock    *testClock
	issuer   *token.Issuer
	svc      *AuthService
}

func newAuthFixture(t *testing.T, cfg AuthConfig, opts ...AuthOption) *authFixture {
	t.Helper()
	f := &authFixture{
		repo:     newStubUserRepo(),
		notifier: &stubNotifier{},
		clock:    newTestClock(),
	}
	iss, err := token.NewIssuer("secret", time.Hour, token.WithClock(f.clock.Now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	f.issuer = iss
	opts = append([]AuthOption{WithClock(f.clock.Now)}, opts...)
	f.svc = NewAuthService(f.repo, testHasher, iss, f.notifier, cfg, discardLogger, opts...)
	return f
}

func openRegistration() AuthConfig {
	return AuthConfig{DefaultRole: domain.RoleUser, AllowRegistration: true, DefaultResetURL: "http://localhost:5173/reset-password"}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(t, openRegistration())

	user, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: " A@X.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash == "secret1" {
		t.Fatalf("expected password to be hashed")
	}
	if !testHasher.Verify("secret1", user.PasswordHash) {
		t.Fatalf("stored hash does not match password")
	}
	if user.Role != domain.RoleUser || !user.Active {
		t.Fatalf("unexpected role/active: %s/%v", user.Role, user.Active)
	}
	if user.Email != "a@x.com" {
		t.Fatalf("expected normalised email, got %q", user.Email)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Fatalf("timestamps must be set")
	}
}

func TestAuthService_Register_DefaultRoleFromConfig(t *testing.T) {
	cfg := openRegistration()
	cfg.DefaultRole = domain.RoleGuest
	f := newAuthFixture(t, cfg)

	user, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "G", Email: "g@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleGuest {
		t.Fatalf("expected guest role, got %s", user.Role)
	}
}

func TestAuthService_Register_Disabled(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{AllowRegistration: false})

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Ann", Email: "a@x.com", Password: "secret1"})
	if err != domain.ErrRegistrationDisabled {
		t.Fatalf("expected ErrRegistrationDisabled, got %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture(t, openRegistration())

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: " ", Email: "nope", Password: "123"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "email", "password"} {
		if ve.Fields[field] == "" {
			t.Errorf("expected message for %s, got %+v", field, ve.Fields)
		}
	}
	if len(f.repo.byID) != 0 {
		t.Fatalf("nothing should be persisted on validation failure")
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture(t, openRegistration())

	_, _ = f.svc.Register(context.Background(), ports.RegisterInput{Name: "Bob", Email: "bob@x.com", Password: "secret1"})
	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Bob2", Email: "BOB@x.com", Password: "secret2"})
	if err != domain.ErrEmailExists {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAuthService_Register_ConcurrentSameEmail(t *testing.T) {
	f := newAuthFixture(t, openRegistration())

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Race", Email: "race@x.com", Password: "secret1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrEmailExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d/%d", n-1, ok, conflicts)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	seeded := seedUser(f.repo, "Carol", "carol@x.com", "s3cret!", domain.RoleAdmin, true)

	res, err := f.svc.Login(context.Background(), "Carol@x.com", "s3cret!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token, got empty")
	}
	if res.User.LastLogin == nil || !res.User.LastLogin.Equal(f.clock.Now()) {
		t.Fatalf("expected lastLogin %v, got %v", f.clock.Now(), res.User.LastLogin)
	}

	stored, _ := f.repo.FindByID(context.Background(), seeded.ID)
	if stored.LastLogin == nil {
		t.Fatalf("lastLogin not persisted")
	}

	claims, err := f.issuer.Verify(res.Token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.UserID != seeded.ID {
		t.Fatalf("expected subject %s, got %s", seeded.ID, claims.UserID)
	}

	f.clock.Advance(2 * time.Hour)
	if _, err := f.issuer.Verify(res.Token); err != domain.ErrInvalidToken {
		t.Fatalf("expected token rejected after expiry, got %v", err)
	}
}

func TestAuthService_Login_WrongPasswordAndUnknownEmailAreIdentical(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	seedUser(f.repo, "Dave", "dave@x.com", "goodpass", domain.RoleUser, true)

	_, errWrong := f.svc.Login(context.Background(), "dave@x.com", "badpass")
	_, errUnknown := f.svc.Login(context.Background(), "ghost@x.com", "badpass")

	if errWrong != domain.ErrInvalidCredentials || errUnknown != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials twice, got %v / %v", errWrong, errUnknown)
	}
	if f.repo.logins != 0 {
		t.Fatalf("failed logins must not touch lastLogin")
	}
}

func TestAuthService_Login_Inactive(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	seedUser(f.repo, "Eve", "eve@x.com", "secret1", domain.RoleUser, false)

	if _, err := f.svc.Login(context.Background(), "eve@x.com", "secret1"); err != domain.ErrAccountInactive {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
	// wrong password on an inactive account stays generic
	if _, err := f.svc.Login(context.Background(), "eve@x.com", "nope!!"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	f.repo.err = errors.New("connection reset")

	_, err := f.svc.Login(context.Background(), "a@x.com", "secret1")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Forgot / reset password
// ---------------------------------------------------------------------------

func TestAuthService_ForgotPassword_IssuesToken(t *testing.T) {
	f := newAuthFixture(t, openRegistration(), WithResetTokenGenerator(func() string { return "tok-1" }))
	u := seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)

	if err := f.svc.ForgotPassword(context.Background(), "A@x.com", "https://app.example.com/reset"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}

	stored, _ := f.repo.FindByID(context.Background(), u.ID)
	if stored.ResetToken != "tok-1" {
		t.Fatalf("expected stored token, got %q", stored.ResetToken)
	}
	if want := f.clock.Now().Add(time.Hour); stored.ResetTokenExpires == nil || !stored.ResetTokenExpires.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, stored.ResetTokenExpires)
	}

	notice := f.notifier.last()
	if notice.Email != "a@x.com" || notice.Token != "tok-1" || notice.ResetURL != "https://app.example.com/reset" {
		t.Fatalf("unexpected notice: %+v", notice)
	}
}

func TestAuthService_ForgotPassword_DefaultResetURL(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)

	if err := f.svc.ForgotPassword(context.Background(), "a@x.com", ""); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if got := f.notifier.last().ResetURL; got != "http://localhost:5173/reset-password" {
		t.Fatalf("expected default reset url, got %q", got)
	}
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t, openRegistration())

	if err := f.svc.ForgotPassword(context.Background(), "ghost@x.com", ""); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.notifier.notices) != 0 {
		t.Fatalf("no notification expected")
	}
}

func TestAuthService_ForgotPassword_NotifierFailure(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)
	f.notifier.err = errors.New("broker down")

	err := f.svc.ForgotPassword(context.Background(), "a@x.com", "")
	if err == nil || errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected generic failure, got %v", err)
	}
}

func TestAuthService_ResetPassword_SingleUse(t *testing.T) {
	f := newAuthFixture(t, openRegistration(), WithResetTokenGenerator(func() string { return "tok-1" }))
	u := seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)
	_ = f.svc.ForgotPassword(context.Background(), "a@x.com", "")

	if err := f.svc.ResetPassword(context.Background(), "tok-1", "newpass1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	stored, _ := f.repo.FindByID(context.Background(), u.ID)
	if !testHasher.Verify("newpass1", stored.PasswordHash) {
		t.Fatalf("password not replaced")
	}
	if stored.ResetToken != "" || stored.ResetTokenExpires != nil {
		t.Fatalf("reset token not cleared")
	}

	if err := f.svc.ResetPassword(context.Background(), "tok-1", "another1"); err != domain.ErrInvalidResetToken {
		t.Fatalf("expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestAuthService_ResetPassword_ExpiredAndUnknownAreIdentical(t *testing.T) {
	f := newAuthFixture(t, openRegistration(), WithResetTokenGenerator(func() string { return "tok-1" }))
	seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)
	_ = f.svc.ForgotPassword(context.Background(), "a@x.com", "")

	f.clock.Advance(time.Hour + time.Second)

	errExpired := f.svc.ResetPassword(context.Background(), "tok-1", "newpass1")
	errUnknown := f.svc.ResetPassword(context.Background(), "nope", "newpass1")
	if errExpired != domain.ErrInvalidResetToken || errUnknown != domain.ErrInvalidResetToken {
		t.Fatalf("expected ErrInvalidResetToken twice, got %v / %v", errExpired, errUnknown)
	}
}

func TestAuthService_ForgotPassword_SupersedesPreviousToken(t *testing.T) {
	n := 0
	gen := func() string { n++; return []string{"first", "second"}[n-1] }
	f := newAuthFixture(t, openRegistration(), WithResetTokenGenerator(gen))
	seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)

	_ = f.svc.ForgotPassword(context.Background(), "a@x.com", "")
	_ = f.svc.ForgotPassword(context.Background(), "a@x.com", "")

	if err := f.svc.ResetPassword(context.Background(), "first", "newpass1"); err != domain.ErrInvalidResetToken {
		t.Fatalf("expected superseded token to fail, got %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), "second", "newpass1"); err != nil {
		t.Fatalf("expected latest token to succeed, got %v", err)
	}
}

func TestAuthService_ResetPassword_ShortPassword(t *testing.T) {
	f := newAuthFixture(t, openRegistration())

	var ve *domain.ValidationError
	if err := f.svc.ResetPassword(context.Background(), "tok", "123"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Authenticate / Logout
// ---------------------------------------------------------------------------

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	u := seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)
	res, _ := f.svc.Login(context.Background(), "a@x.com", "secret1")

	p, err := f.svc.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.User.ID != u.ID || p.Claims.UserID != u.ID {
		t.Fatalf("unexpected principal: %+v", p.User)
	}

	if _, err := f.svc.Authenticate(context.Background(), "garbage"); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	_ = f.repo.Delete(context.Background(), u.ID)
	if _, err := f.svc.Authenticate(context.Background(), res.Token); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for deleted user, got %v", err)
	}
}

func TestAuthService_Authenticate_ReflectsRoleChange(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	u := seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)
	res, _ := f.svc.Login(context.Background(), "a@x.com", "secret1")

	admin := domain.RoleAdmin
	_, _ = f.repo.Update(context.Background(), u.ID, domain.UserUpdate{Role: &admin})

	p, err := f.svc.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.User.Role != domain.RoleAdmin {
		t.Fatalf("expected fresh role, got %s", p.User.Role)
	}
}

func TestAuthService_Logout_RevokesToken(t *testing.T) {
	deny := &stubDenylist{revoked: map[string]time.Time{}}
	f := newAuthFixture(t, openRegistration(), WithDenylist(deny))
	seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)
	res, _ := f.svc.Login(context.Background(), "a@x.com", "secret1")

	p, err := f.svc.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := f.svc.Logout(context.Background(), p.Claims); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if exp, ok := deny.revoked[p.Claims.TokenID]; !ok || !exp.Equal(p.Claims.ExpiresAt) {
		t.Fatalf("token id not revoked until expiry: %+v", deny.revoked)
	}
	if _, err := f.svc.Authenticate(context.Background(), res.Token); err != domain.ErrInvalidToken {
		t.Fatalf("expected revoked token rejected, got %v", err)
	}
}

func TestAuthService_Authenticate_DenylistFailure(t *testing.T) {
	deny := &stubDenylist{revoked: map[string]time.Time{}}
	f := newAuthFixture(t, openRegistration(), WithDenylist(deny))
	seedUser(f.repo, "Ann", "a@x.com", "secret1", domain.RoleUser, true)
	res, _ := f.svc.Login(context.Background(), "a@x.com", "secret1")

	deny.err = errors.New("redis down")
	_, err := f.svc.Authenticate(context.Background(), res.Token)
	if err == nil || errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected generic failure, got %v", err)
	}
}

func TestAuthService_Logout_WithoutDenylist(t *testing.T) {
	f := newAuthFixture(t, openRegistration())
	if f.svc.RevocationEnabled() {
		t.Fatalf("revocation should be disabled")
	}
	if err := f.svc.Logout(context.Background(), &ports.TokenClaims{TokenID: "x"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
