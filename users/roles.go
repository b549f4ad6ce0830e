package users

import "strings"

// Role is a user's privilege level. Roles are ordered user < moderator < admin.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// roleRanks is the fixed role hierarchy. Anything not listed ranks 0.
var roleRanks = map[Role]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// ParseRole normalises a role string. Unknown values are returned as-is and rank 0.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Rank returns the role's position in the hierarchy, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[ParseRole(string(r))]
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

func (r Role) String() string {
	return string(r)
}

// HasRole reports whether userRole is at least requiredRole.
// Unknown roles on either side deny.
func HasRole(userRole, requiredRole Role) bool {
	userRank, requiredRank := userRole.Rank(), requiredRole.Rank()
	if userRank == 0 || requiredRank == 0 {
		return false
	}
	return userRank >= requiredRank
}
