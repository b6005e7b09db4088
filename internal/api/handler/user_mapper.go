package handler

import (
	"strings"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/query"
)

// --- Domain → Response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toListResponse(res *ports.ListUsersResult) listUsersResponse {
	items := make([]userListItem, 0, len(res.Users))
	for _, u := range res.Users {
		items = append(items, userListItem{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			Active:    u.Active,
			LastLogin: u.LastLogin,
		})
	}
	return listUsersResponse{
		Users:      items,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
		TotalUsers: res.Total,
	}
}

// --- Request → Service input ---

func toQueryParams(req listUsersRequest) query.Params {
	p := query.Params{
		Page:      req.Page,
		Limit:     req.Limit,
		Search:    strings.TrimSpace(req.Search),
		Roles:     query.SplitList(append([]string{req.Roles}, req.Role...)...),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Active != "" {
		active := req.Active == "true"
		p.Active = &active
	}
	return p
}

func toCreateUserInput(req createUserRequest) ports.CreateUserInput {
	return ports.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Active:   req.Active,
	}
}

func toUpdateUserInput(req updateUserRequest) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Active: req.Active,
	}
}
