package handler

import (
	"strings"
	"time"

	"github.com/99minutos/user-service/internal/core/domain"
)

// errorResponse documents the error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Errors map[string]string `json:"errors"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type forgotPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	ResetURL string `json:"resetUrl" validate:"omitempty,url"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// --- Profile ---

type updateProfileRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=1"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6,max=72"`
}

// --- Users ---

type userResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type userListItem struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"lastLogin"`
}

type listUsersRequest struct {
	Page      int      `query:"page"`
	Limit     int      `query:"limit"`
	Search    string   `query:"search"`
	Roles     string   `query:"roles"`
	Role      []string `query:"role"`
	Active    string   `query:"active" validate:"omitempty,oneof=true false"`
	SortBy    string   `query:"sortBy"`
	SortOrder string   `query:"sortOrder"`
	Export    string   `query:"export" validate:"omitempty,oneof=true false"`
}

type listUsersResponse struct {
	Users      []userListItem `json:"users"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
	TotalUsers int64          `json:"totalUsers"`
}

type createUserRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"     validate:"required,role"`
	Active   *bool  `json:"active"`
}

type updateUserRequest struct {
	Name   *string `json:"name"   validate:"omitempty,min=1"`
	Email  *string `json:"email"  validate:"omitempty,email"`
	Role   *string `json:"role"   validate:"omitempty,role"`
	Active *bool   `json:"active"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// --- Roles ---

type rolesResponse struct {
	Roles []string `json:"roles"`
}

// --- Input normalisation ---

func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = domain.NormalizeEmail(r.Email)
}

func (r *loginRequest) normalize() { r.Email = domain.NormalizeEmail(r.Email) }

func (r *forgotPasswordRequest) normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
	r.ResetURL = strings.TrimSpace(r.ResetURL)
}

func (r *updateProfileRequest) normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := domain.NormalizeEmail(*r.Email)
		r.Email = &email
	}
}

func (r *createUserRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = domain.NormalizeEmail(r.Email)
}

func (r *updateUserRequest) normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := domain.NormalizeEmail(*r.Email)
		r.Email = &email
	}
}
