package domain

import "strings"

// Role is the permission level carried by an API token. Admin includes
// everything a viewer may do.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a stored role name onto a known role. Anything that is not
// admin gets viewer rights.
func ParseRole(raw string) Role {
	if Role(strings.ToLower(strings.TrimSpace(raw))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleViewer
}

func (r Role) Valid() bool {
	return r.level() > 0
}

// Allows reports whether r is at least as privileged as required.
func (r Role) Allows(required Role) bool {
	return r.Valid() && r.level() >= required.level()
}

func (r Role) level() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}
