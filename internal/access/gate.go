// Package access decides whether the signed-in user may see a view.
package access

import (
	"net/url"

	"league-console/internal/model"
)

const DeniedPath = "/access-denied"

type Decision int

const (
	// DecisionLoading means the session has not resolved a user yet. It is
	// not the same as anonymous and must not redirect.
	DecisionLoading Decision = iota
	DecisionAllow
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "loading"
	}
}

type Policy struct {
	AllowedRoles []model.Role
	Reason       string
}

// Role dashboards admit exactly one role.
var (
	SystemAdminOnly = Policy{AllowedRoles: []model.Role{model.RoleSystemAdmin}, Reason: "system_admin_only"}
	TenantAdminOnly = Policy{AllowedRoles: []model.Role{model.RoleTenantAdmin}, Reason: "tenant_admin_only"}
	LeagueAdminOnly = Policy{AllowedRoles: []model.Role{model.RoleLeagueAdmin}, Reason: "league_admin_only"}
	TeamAdminOnly   = Policy{AllowedRoles: []model.Role{model.RoleTeamAdmin}, Reason: "team_admin_only"}
)

// Scoped views admit the role that owns the scope and every role above it,
// since higher roles reach the scope through URL parameters.
var (
	TenantScoped = Policy{
		AllowedRoles: []model.Role{model.RoleSystemAdmin, model.RoleTenantAdmin},
		Reason:       "tenant_scope_required",
	}
	LeagueScoped = Policy{
		AllowedRoles: []model.Role{model.RoleSystemAdmin, model.RoleTenantAdmin, model.RoleLeagueAdmin},
		Reason:       "league_scope_required",
	}
	TeamScoped = Policy{
		AllowedRoles: []model.Role{model.RoleSystemAdmin, model.RoleTenantAdmin, model.RoleLeagueAdmin, model.RoleTeamAdmin},
		Reason:       "team_scope_required",
	}
	Authenticated = Policy{AllowedRoles: model.RolePrecedence, Reason: "authenticated"}
)

// Evaluate allows the user when their roles intersect the policy's.
func Evaluate(user *model.User, policy Policy) Decision {
	if user == nil {
		return DecisionLoading
	}

	if user.HasAnyRole(policy.AllowedRoles...) {
		return DecisionAllow
	}

	return DecisionDeny
}

func DeniedURL(reason string) string {
	if reason == "" {
		return DeniedPath
	}

	return DeniedPath + "?" + url.Values{"reason": {reason}}.Encode()
}
