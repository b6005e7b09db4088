// Package access holds the static permission table and the access decision
// procedure built on top of it.
//
// A Table is built once at startup and never mutated afterwards, so it is
// safe for concurrent use without locking. Membership is exact: a role is
// granted an action only when it is listed for that action.
package access

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/99minutos/user-service/internal/core/domain"
)

// Permission names used by the HTTP surface.
const (
	UsersList     = "users.list"
	UsersRead     = "users.read"
	UsersCreate   = "users.create"
	UsersUpdate   = "users.update"
	UsersDelete   = "users.delete"
	UsersExport   = "users.export"
	UsersActivate = "users.activate"
	UsersPassword = "users.password"
	RolesRead     = "roles.read"
	ProfileRead   = "profile.read"
	ProfileUpdate = "profile.update"
)

// DefaultPermissions is the built-in action → roles mapping.
var DefaultPermissions = map[string][]string{
	UsersList:     {domain.RoleAdmin},
	UsersRead:     {domain.RoleAdmin},
	UsersCreate:   {domain.RoleAdmin},
	UsersUpdate:   {domain.RoleAdmin},
	UsersDelete:   {domain.RoleAdmin},
	UsersExport:   {domain.RoleAdmin},
	UsersActivate: {domain.RoleAdmin},
	UsersPassword: {domain.RoleAdmin},
	RolesRead:     {domain.RoleUser, domain.RoleAdmin},
	ProfileRead:   {domain.RoleGuest, domain.RoleUser, domain.RoleAdmin},
	ProfileUpdate: {domain.RoleGuest, domain.RoleUser, domain.RoleAdmin},
}

// Table is an immutable action → role-set lookup.
type Table struct {
	grants map[string]map[string]struct{}
}

// NewTable copies perms into a Table. Every role must belong to the closed
// role enumeration.
func NewTable(perms map[string][]string) (*Table, error) {
	grants := make(map[string]map[string]struct{}, len(perms))
	for action, roles := range perms {
		if action == "" {
			return nil, fmt.Errorf("access: empty permission name")
		}
		set := make(map[string]struct{}, len(roles))
		for _, r := range roles {
			if !domain.IsValidRole(r) {
				return nil, fmt.Errorf("access: permission %q references unknown role %q", action, r)
			}
			set[r] = struct{}{}
		}
		grants[action] = set
	}
	return &Table{grants: grants}, nil
}

// DefaultTable returns the table built from DefaultPermissions.
func DefaultTable() *Table {
	t, err := NewTable(DefaultPermissions)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTable reads a JSON object of the form {"users.list": ["admin"], ...}.
// An empty path yields the default table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("access: read permissions file: %w", err)
	}

	var perms map[string][]string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, fmt.Errorf("access: decode permissions file: %w", err)
	}
	return NewTable(perms)
}

// Authorize reports whether role may perform action. Unknown actions deny.
func (t *Table) Authorize(role, action string) bool {
	set, ok := t.grants[action]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// Actions lists the known permission names, sorted.
func (t *Table) Actions() []string {
	out := make([]string, 0, len(t.grants))
	for a := range t.grants {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
