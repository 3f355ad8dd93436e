package scope

import "league-console/internal/model"

type Kind int

const (
	// Selectable scopes carry their ids in the URL; the user picks them.
	Selectable Kind = iota
	// Fixed scopes are pinned by the user's scoping ids.
	Fixed
)

func (k Kind) String() string {
	if k == Fixed {
		return "fixed"
	}
	return "selectable"
}

// Scope is decided once per request from the user's primary role.
type Scope struct {
	Kind  Kind
	Fixed Context
}

// ForUser picks the scope of the user's highest-precedence role. System
// admins and general users select scope freely; admins of a tenant, league
// or team are pinned to it. The tenant id is carried with every fixed scope
// because league and team routes need it.
func ForUser(user *model.User) Scope {
	if user == nil {
		return Scope{Kind: Selectable}
	}

	switch user.PrimaryRole() {
	case model.RoleTenantAdmin:
		return Scope{Kind: Fixed, Fixed: Context{TenantID: user.TenantID}}
	case model.RoleLeagueAdmin:
		return Scope{Kind: Fixed, Fixed: Context{TenantID: user.TenantID, LeagueID: user.ManagingLeagueID}}
	case model.RoleTeamAdmin:
		return Scope{Kind: Fixed, Fixed: Context{
			TenantID: user.TenantID,
			LeagueID: user.ManagingLeagueID,
			TeamID:   user.ManagingTeamID,
		}}
	default:
		return Scope{Kind: Selectable}
	}
}
