// Package scope works out which tenant, league and team a console view acts
// on, and builds links that carry that choice from view to view.
package scope

import "net/url"

const (
	ParamTenantID = "tenantId"
	ParamLeagueID = "leagueId"
	ParamTeamID   = "teamId"
)

// Context is the tenant/league/team a request operates under. It lives in the
// URL only and is recomputed on every request.
type Context struct {
	TenantID string `json:"tenantId,omitempty"`
	LeagueID string `json:"leagueId,omitempty"`
	TeamID   string `json:"teamId,omitempty"`
}

func FromQuery(values url.Values) Context {
	return Context{
		TenantID: values.Get(ParamTenantID),
		LeagueID: values.Get(ParamLeagueID),
		TeamID:   values.Get(ParamTeamID),
	}
}

// Or fills every empty id of c from fallback.
func (c Context) Or(fallback Context) Context {
	if c.TenantID == "" {
		c.TenantID = fallback.TenantID
	}
	if c.LeagueID == "" {
		c.LeagueID = fallback.LeagueID
	}
	if c.TeamID == "" {
		c.TeamID = fallback.TeamID
	}
	return c
}

// Values holds only the non-empty ids.
func (c Context) Values() url.Values {
	values := url.Values{}
	if c.TenantID != "" {
		values.Set(ParamTenantID, c.TenantID)
	}
	if c.LeagueID != "" {
		values.Set(ParamLeagueID, c.LeagueID)
	}
	if c.TeamID != "" {
		values.Set(ParamTeamID, c.TeamID)
	}
	return values
}

func (c Context) IsZero() bool {
	return c == Context{}
}
