package model

import "strings"

type Role string

const (
	RoleSystemAdmin Role = "SYSTEM_ADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleLeagueAdmin Role = "LEAGUE_ADMIN"
	RoleTeamAdmin   Role = "TEAM_ADMIN"
	RoleUser        Role = "USER"
)

// RolePrecedence lists roles from highest to lowest. When a user holds more
// than one role, the first match in this list decides their home view and
// scope.
var RolePrecedence = []Role{
	RoleSystemAdmin,
	RoleTenantAdmin,
	RoleLeagueAdmin,
	RoleTeamAdmin,
	RoleUser,
}

func ParseRole(raw string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(raw)))
}

// Rank returns the position of r in RolePrecedence, or len(RolePrecedence)
// for roles the console does not know.
func (r Role) Rank() int {
	for i, known := range RolePrecedence {
		if r == known {
			return i
		}
	}

	return len(RolePrecedence)
}

func (r Role) Known() bool {
	return r.Rank() < len(RolePrecedence)
}

// PrimaryRole picks the highest-ranked role. It returns "" for an empty set.
func PrimaryRole(roles []Role) Role {
	var primary Role
	best := len(RolePrecedence) + 1
	for _, role := range roles {
		if rank := role.Rank(); rank < best {
			best = rank
			primary = role
		}
	}

	return primary
}
