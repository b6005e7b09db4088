package sqldb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/query"
)

// setupTestRepo opens a private in-memory SQLite database.
func setupTestRepo(t *testing.T) *UserRepository {
	t.Helper()

	db, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"}, zerolog.Nop())
	require.NoError(t, err, "failed to open test database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewUserRepository(db)
}

func newUser(name, email, role string, active bool) *domain.User {
	return &domain.User{Name: name, Email: email, PasswordHash: "hash", Role: role, Active: active}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestUserRepository_Create(t *testing.T) {
	t.Run("assigns id and timestamps", func(t *testing.T) {
		repo := setupTestRepo(t)

		u, err := repo.Create(context.Background(), newUser("Ann", "Ann@X.com", domain.RoleUser, true))

		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "ann@x.com", u.Email)
		assert.False(t, u.CreatedAt.IsZero())
		assert.False(t, u.UpdatedAt.IsZero())
	})

	t.Run("inactive flag is persisted", func(t *testing.T) {
		repo := setupTestRepo(t)

		u, err := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, false))
		require.NoError(t, err)

		got, err := repo.FindByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := setupTestRepo(t)

		_, err := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))
		require.NoError(t, err)

		_, err = repo.Create(context.Background(), newUser("Other", "A@x.com", domain.RoleUser, true))
		assert.ErrorIs(t, err, domain.ErrEmailExists)
	})
}

func TestUserRepository_ConcurrentCreateSameEmail(t *testing.T) {
	repo := setupTestRepo(t)

	const n = 6
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(context.Background(), newUser("Race", "race@x.com", domain.RoleUser, true))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if err == domain.ErrEmailExists {
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dupes)
}

func TestUserRepository_Find(t *testing.T) {
	repo := setupTestRepo(t)
	created, err := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))
	require.NoError(t, err)

	byEmail, err := repo.FindByEmail(context.Background(), " A@X.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.FindByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_Update(t *testing.T) {
	repo := setupTestRepo(t)
	ann, _ := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))
	_, _ = repo.Create(context.Background(), newUser("Bob", "b@x.com", domain.RoleUser, true))

	name, role, inactive := "Ann B", domain.RoleAdmin, false
	got, err := repo.Update(context.Background(), ann.ID, domain.UserUpdate{Name: &name, Role: &role, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", got.Name)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.False(t, got.Active)
	assert.Equal(t, "a@x.com", got.Email)

	taken := "B@x.com"
	_, err = repo.Update(context.Background(), ann.ID, domain.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrEmailExists)

	_, err = repo.Update(context.Background(), "missing", domain.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_Delete(t *testing.T) {
	repo := setupTestRepo(t)
	ann, _ := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))

	require.NoError(t, repo.Delete(context.Background(), ann.ID))
	assert.ErrorIs(t, repo.Delete(context.Background(), ann.ID), domain.ErrUserNotFound)

	_, err := repo.FindByID(context.Background(), ann.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_LastLogin(t *testing.T) {
	repo := setupTestRepo(t)
	ann, _ := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SetLastLogin(context.Background(), ann.ID, at))

	got, err := repo.FindByID(context.Background(), ann.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(at))

	assert.ErrorIs(t, repo.SetLastLogin(context.Background(), "missing", at), domain.ErrUserNotFound)
}

func TestUserRepository_ResetToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("consumed once", func(t *testing.T) {
		repo := setupTestRepo(t)
		ann, _ := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))
		require.NoError(t, repo.SetResetToken(context.Background(), ann.ID, "tok", now.Add(time.Hour)))

		stored, _ := repo.FindByID(context.Background(), ann.ID)
		assert.True(t, stored.HasValidResetToken("tok", now))

		require.NoError(t, repo.ConsumeResetToken(context.Background(), "tok", now, "newhash"))
		assert.ErrorIs(t, repo.ConsumeResetToken(context.Background(), "tok", now, "again"), domain.ErrInvalidResetToken)

		got, _ := repo.FindByID(context.Background(), ann.ID)
		assert.Equal(t, "newhash", got.PasswordHash)
		assert.Empty(t, got.ResetToken)
		assert.Nil(t, got.ResetTokenExpires)
	})

	t.Run("expired", func(t *testing.T) {
		repo := setupTestRepo(t)
		ann, _ := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))
		require.NoError(t, repo.SetResetToken(context.Background(), ann.ID, "tok", now.Add(time.Hour)))

		err := repo.ConsumeResetToken(context.Background(), "tok", now.Add(time.Hour), "newhash")
		assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
	})

	t.Run("superseded", func(t *testing.T) {
		repo := setupTestRepo(t)
		ann, _ := repo.Create(context.Background(), newUser("Ann", "a@x.com", domain.RoleUser, true))
		require.NoError(t, repo.SetResetToken(context.Background(), ann.ID, "old", now.Add(time.Hour)))
		require.NoError(t, repo.SetResetToken(context.Background(), ann.ID, "new", now.Add(time.Hour)))

		assert.ErrorIs(t, repo.ConsumeResetToken(context.Background(), "old", now, "h"), domain.ErrInvalidResetToken)
		assert.NoError(t, repo.ConsumeResetToken(context.Background(), "new", now, "h"))
	})

	t.Run("empty token", func(t *testing.T) {
		repo := setupTestRepo(t)
		assert.ErrorIs(t, repo.ConsumeResetToken(context.Background(), "", now, "h"), domain.ErrInvalidResetToken)
	})
}

func seedUsers(t *testing.T, repo *UserRepository, n int) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		role := domain.RoleUser
		if i%5 == 0 {
			role = domain.RoleAdmin
		}
		u := newUser(fmt.Sprintf("User %02d", i), fmt.Sprintf("user%02d@x.com", i), role, i%2 == 1)
		u.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		u.UpdatedAt = u.CreatedAt
		_, err := repo.Create(context.Background(), u)
		require.NoError(t, err)
	}
}

func TestUserRepository_List_Pagination(t *testing.T) {
	repo := setupTestRepo(t)
	seedUsers(t, repo, 25)

	seen := map[string]bool{}
	for page, want := range []int{10, 10, 5, 0} {
		q, err := query.Build(query.Params{Page: page + 1, Limit: 10})
		require.NoError(t, err)

		users, total, err := repo.List(context.Background(), q)
		require.NoError(t, err)
		assert.EqualValues(t, 25, total)
		assert.Len(t, users, want, "page %d", page+1)
		for _, u := range users {
			assert.False(t, seen[u.ID], "user %s repeated", u.ID)
			seen[u.ID] = true
		}
	}
	assert.Len(t, seen, 25)
}

func TestUserRepository_List_Sort(t *testing.T) {
	repo := setupTestRepo(t)
	seedUsers(t, repo, 5)

	q, _ := query.Build(query.Params{SortBy: "name", SortOrder: "desc"})
	users, _, err := repo.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, users, 5)
	assert.Equal(t, "User 05", users[0].Name)
	assert.Equal(t, "User 01", users[4].Name)

	q, _ = query.Build(query.Params{})
	users, _, err = repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "User 01", users[0].Name, "default sort is creation ascending")
}

func TestUserRepository_List_Filters(t *testing.T) {
	repo := setupTestRepo(t)
	seedUsers(t, repo, 25)

	active := true
	q, _ := query.Build(query.Params{Roles: []string{domain.RoleAdmin}, Active: &active})
	users, total, err := repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, u := range users {
		assert.Equal(t, domain.RoleAdmin, u.Role)
		assert.True(t, u.Active)
	}

	q, _ = query.Build(query.Params{Search: "USER 1"})
	_, total, err = repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 10, total, "search is case-insensitive on name")

	q, _ = query.Build(query.Params{Search: "user07@"})
	users, total, err = repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "User 07", users[0].Name)
}

func TestUserRepository_List_SearchEscapesWildcards(t *testing.T) {
	repo := setupTestRepo(t)
	seedUsers(t, repo, 3)
	_, _ = repo.Create(context.Background(), newUser("100% Real", "real@x.com", domain.RoleUser, true))

	q, _ := query.Build(query.Params{Search: "%"})
	users, total, err := repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "100% Real", users[0].Name)

	q, _ = query.Build(query.Params{Search: "_"})
	_, total, err = repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestUserRepository_List_Unpaged(t *testing.T) {
	repo := setupTestRepo(t)
	seedUsers(t, repo, 15)

	q, _ := query.Build(query.Params{})
	q.Unpaged = true
	users, total, err := repo.List(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 15, total)
	assert.Len(t, users, 15)
}
