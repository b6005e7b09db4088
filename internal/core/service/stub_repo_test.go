package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/query"
	"github.com/99minutos/user-service/internal/pkg/password"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	seq    int
	err    error // if set, every call returns this error
	lastQ  query.UserQuery
	logins int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrEmailExists
		}
	}
	r.seq++
	stored := cloneUser(user)
	stored.ID = fmt.Sprintf("u%03d", r.seq)
	r.byID[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Update(_ context.Context, id string, up domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if up.Email != nil {
		for otherID, other := range r.byID {
			if otherID != id && other.Email == *up.Email {
				return nil, domain.ErrEmailExists
			}
		}
		u.Email = *up.Email
	}
	if up.Name != nil {
		u.Name = *up.Name
	}
	if up.Role != nil {
		u.Role = *up.Role
	}
	if up.Active != nil {
		u.Active = *up.Active
	}
	if up.PasswordHash != nil {
		u.PasswordHash = *up.PasswordHash
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	r.logins++
	return nil
}

func (r *stubUserRepo) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpires = &expires
	return nil
}

func (r *stubUserRepo) ConsumeResetToken(_ context.Context, token string, now time.Time, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.HasValidResetToken(token, now) {
			u.PasswordHash = hash
			u.ResetToken = ""
			u.ResetTokenExpires = nil
			return nil
		}
	}
	return domain.ErrInvalidResetToken
}

// List applies the same filters the real repositories would use.
func (r *stubUserRepo) List(_ context.Context, q query.UserQuery) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQ = q
	if r.err != nil {
		return nil, 0, r.err
	}

	var matched []*domain.User
	for _, u := range r.byID {
		if s := strings.ToLower(q.Filter.Search); s != "" &&
			!strings.Contains(strings.ToLower(u.Name), s) && !strings.Contains(strings.ToLower(u.Email), s) {
			continue
		}
		if len(q.Filter.Roles) > 0 && !contains(q.Filter.Roles, u.Role) {
			continue
		}
		if q.Filter.Active != nil && u.Active != *q.Filter.Active {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if q.Unpaged {
		return matched, total, nil
	}
	skip := q.Skip()
	if skip > len(matched) {
		return []*domain.User{}, total, nil
	}
	end := skip + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type stubNotifier struct {
	mu      sync.Mutex
	notices []ports.PasswordResetNotice
	err     error
}

func (n *stubNotifier) SendPasswordReset(_ context.Context, notice ports.PasswordResetNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *stubNotifier) last() ports.PasswordResetNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notices[len(n.notices)-1]
}

type stubDenylist struct {
	revoked map[string]time.Time
	err     error
}

func (d *stubDenylist) Revoke(_ context.Context, id string, exp time.Time) error {
	if d.err != nil {
		return d.err
	}
	d.revoked[id] = exp
	return nil
}

func (d *stubDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[id]
	return ok, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var testHasher = password.NewBcrypt(bcrypt.MinCost)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func seedUser(repo *stubUserRepo, name, email, plaintext, role string, active bool) *domain.User {
	hash, _ := testHasher.Hash(plaintext)
	u, err := repo.Create(context.Background(), &domain.User{
		Name: name, Email: email, PasswordHash: hash, Role: role, Active: active,
	})
	if err != nil {
		panic(err)
	}
	return u
}
