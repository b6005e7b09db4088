package sqldb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/query"
)

type userModel struct {
	ID                string  `gorm:"primaryKey;size:36"`
	Name              string  `gorm:"size:255;not null"`
	Email             string  `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash      string  `gorm:"not null"`
	Role              string  `gorm:"size:16;not null;index"`
	Active            bool    `gorm:"not null"`
	ResetToken        *string `gorm:"size:64;index"`
	ResetTokenExpires *int64  // unix milliseconds
	LastLogin         *time.Time
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time
}

func (userModel) TableName() string { return "users" }

func (m *userModel) toDomain() *domain.User {
	u := &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.ResetToken != nil {
		u.ResetToken = *m.ResetToken
	}
	if m.ResetTokenExpires != nil {
		exp := time.UnixMilli(*m.ResetTokenExpires).UTC()
		u.ResetTokenExpires = &exp
	}
	if m.LastLogin != nil {
		last := m.LastLogin.UTC()
		u.LastLogin = &last
	}
	return u
}

var sortColumns = map[string]string{
	query.SortID:        "id",
	query.SortName:      "name",
	query.SortEmail:     "email",
	query.SortRole:      "role",
	query.SortActive:    "active",
	query.SortLastLogin: "last_login",
	query.SortCreatedAt: "created_at",
	query.SortUpdatedAt: "updated_at",
}

// UserRepository implements ports.UserRepository on gorm.
type UserRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := r.now()
	m := &userModel{
		ID:           uuid.NewString(),
		Name:         user.Name,
		Email:        domain.NormalizeEmail(user.Email),
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		Active:       user.Active,
		CreatedAt:    orNow(user.CreatedAt, now),
		UpdatedAt:    orNow(user.UpdatedAt, now),
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicate(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *UserRepository) first(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return m.toDomain(), nil
}

// Update writes the non-nil fields of up. A map is used so false and empty
// values are written rather than skipped.
func (r *UserRepository) Update(ctx context.Context, id string, up domain.UserUpdate) (*domain.User, error) {
	values := map[string]any{"updated_at": r.now()}
	if up.Name != nil {
		values["name"] = *up.Name
	}
	if up.Email != nil {
		values["email"] = domain.NormalizeEmail(*up.Email)
	}
	if up.Role != nil {
		values["role"] = *up.Role
	}
	if up.Active != nil {
		values["active"] = *up.Active
	}
	if up.PasswordHash != nil {
		values["password_hash"] = *up.PasswordHash
	}

	if err := r.updateByID(ctx, id, values); err != nil {
		if isDuplicate(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&userModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, map[string]any{"last_login": at.UTC()})
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.updateByID(ctx, id, map[string]any{
		"reset_token":         token,
		"reset_token_expires": expires.UnixMilli(),
		"updated_at":          r.now(),
	})
}

func (r *UserRepository) updateByID(ctx context.Context, id string, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return res.Error
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeResetToken is one conditional UPDATE: the row only changes while the
// token is still stored and unexpired, so a token can be spent once.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) error {
	if token == "" {
		return domain.ErrInvalidResetToken
	}
	res := r.db.WithContext(ctx).Model(&userModel{}).
		Where("reset_token = ? AND reset_token_expires > ?", token, now.UnixMilli()).
		Updates(map[string]any{
			"password_hash":       passwordHash,
			"reset_token":         nil,
			"reset_token_expires": nil,
			"updated_at":          r.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("consume reset token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrInvalidResetToken
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, q query.UserQuery) ([]*domain.User, int64, error) {
	filtered := func() *gorm.DB {
		return applyFilter(r.db.WithContext(ctx).Model(&userModel{}), q.Filter)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	tx := filtered().Order(orderBy(q.Sort))
	if !q.Unpaged {
		tx = tx.Offset(q.Skip()).Limit(q.Limit)
	}

	var rows []userModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toDomain())
	}
	return users, total, nil
}

func applyFilter(tx *gorm.DB, f query.UserFilter) *gorm.DB {
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		tx = tx.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if len(f.Roles) > 0 {
		tx = tx.Where("role IN ?", f.Roles)
	}
	if f.Active != nil {
		tx = tx.Where("active = ?", *f.Active)
	}
	return tx
}

func orderBy(s query.Sort) clause.OrderBy {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = sortColumns[query.DefaultSort]
	}
	cols := []clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: s.Desc}}
	if col != "id" {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: s.Desc})
	}
	return clause.OrderBy{Columns: cols}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// isDuplicate recognises unique violations from both dialects. The string
// check covers drivers that do not implement gorm's error translation.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
