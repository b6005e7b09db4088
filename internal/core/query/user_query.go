// Package query turns raw listing parameters into a normalised, storage
// independent user query. Repositories translate the result into their own
// predicate language (bson for MongoDB, SQL clauses for gorm).
package query

import (
	"math"
	"strings"

	"github.com/99minutos/user-service/internal/core/domain"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	DefaultSort  = SortCreatedAt
)

// Sortable keys. Repositories own the key → column mapping.
const (
	SortID        = "id"
	SortName      = "name"
	SortEmail     = "email"
	SortRole      = "role"
	SortActive    = "active"
	SortLastLogin = "lastLogin"
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
)

var sortable = map[string]struct{}{
	SortID: {}, SortName: {}, SortEmail: {}, SortRole: {},
	SortActive: {}, SortLastLogin: {}, SortCreatedAt: {}, SortUpdatedAt: {},
}

// UserFilter is the predicate part of a listing: search OR-matches name and
// email, Roles is a membership filter, Active an equality filter.
type UserFilter struct {
	Search string
	Roles  []string
	Active *bool
}

// Sort is a single allow-listed key with a direction.
type Sort struct {
	Field string
	Desc  bool
}

// UserQuery is a filtered, sorted page request. When Unpaged is set the
// repository returns every match and ignores Page/Limit.
type UserQuery struct {
	Filter  UserFilter
	Sort    Sort
	Page    int
	Limit   int
	Unpaged bool
}

// Skip is the number of rows before the requested page.
func (q UserQuery) Skip() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// Params are the raw listing inputs as they arrive from the transport.
type Params struct {
	Page      int
	Limit     int
	Search    string
	Roles     []string
	Active    *bool
	SortBy    string
	SortOrder string
}

// Build validates p and applies defaults. Zero page/limit take defaults,
// negative values are rejected, unknown sort keys fall back to DefaultSort.
func Build(p Params) (UserQuery, error) {
	fields := map[string]string{}

	page := p.Page
	switch {
	case page == 0:
		page = DefaultPage
	case page < 0:
		fields["page"] = "page must be at least 1"
	}

	limit := p.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0:
		fields["limit"] = "limit must be greater than 0"
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if page > 1 && limit > 0 && page-1 > math.MaxInt/limit {
		fields["page"] = "page is too large"
	}

	roles := make([]string, 0, len(p.Roles))
	seen := make(map[string]struct{}, len(p.Roles))
	for _, r := range p.Roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !domain.IsValidRole(r) {
			fields["roles"] = "roles must be any of: " + strings.Join(domain.Roles(), ", ")
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}

	if len(fields) > 0 {
		return UserQuery{}, &domain.ValidationError{Fields: fields}
	}

	return UserQuery{
		Filter: UserFilter{
			Search: strings.TrimSpace(p.Search),
			Roles:  roles,
			Active: p.Active,
		},
		Sort:  BuildSort(p.SortBy, p.SortOrder),
		Page:  page,
		Limit: limit,
	}, nil
}

// BuildSort maps a requested key/direction onto the allow-list.
func BuildSort(sortBy, order string) Sort {
	field := sortBy
	if _, ok := sortable[field]; !ok {
		field = DefaultSort
	}
	return Sort{Field: field, Desc: strings.EqualFold(order, "desc")}
}

// IsSortable reports whether key is on the allow-list.
func IsSortable(key string) bool {
	_, ok := sortable[key]
	return ok
}

// TotalPages is ceil(total / limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}

// SplitList splits comma separated values and drops blanks.
func SplitList(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
