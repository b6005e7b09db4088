package domain

const (
	RoleGuest = "guest"
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var roles = []string{RoleGuest, RoleUser, RoleAdmin}

// Roles returns the closed role enumeration in display order.
func Roles() []string {
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}

// IsValidRole reports whether role belongs to the enumeration.
func IsValidRole(role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
