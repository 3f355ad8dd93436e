package scope

import (
	"net/url"
	"strings"
)

type Family int

const (
	FamilyNone Family = iota
	FamilyTenant
	FamilyLeague
	FamilyTeam
)

func (f Family) String() string {
	switch f {
	case FamilyTenant:
		return "tenant"
	case FamilyLeague:
		return "league"
	case FamilyTeam:
		return "team"
	default:
		return "none"
	}
}

// Placeholder names the "select a scope" view shown when a route's context
// is missing.
func (f Family) Placeholder() string {
	switch f {
	case FamilyTenant:
		return "select_tenant"
	case FamilyLeague:
		return "select_league"
	case FamilyTeam:
		return "select_team"
	default:
		return ""
	}
}

func FamilyOf(path string) Family {
	switch {
	case hasSegmentPrefix(path, "/tenant"):
		return FamilyTenant
	case hasSegmentPrefix(path, "/league"):
		return FamilyLeague
	case hasSegmentPrefix(path, "/team"):
		return FamilyTeam
	default:
		return FamilyNone
	}
}

func hasSegmentPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

type Resolver struct {
	scope Scope
	query Context
}

func NewResolver(s Scope, query url.Values) *Resolver {
	return &Resolver{scope: s, query: FromQuery(query)}
}

func (r *Resolver) Scope() Scope {
	return r.scope
}

// Active is the explicit URL context, with the fixed scope filling any id the
// URL leaves out.
func (r *Resolver) Active() Context {
	if r.scope.Kind == Fixed {
		return r.query.Or(r.scope.Fixed)
	}
	return r.query
}

// BuildLink returns base with every known non-empty scope id in its query.
// Overrides win over the active context. Query parameters already in base are
// kept unless a scope id replaces them.
func (r *Resolver) BuildLink(base string, overrides Context) string {
	ctx := overrides.Or(r.Active())

	path, rawQuery, _ := strings.Cut(base, "?")
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	for key, vals := range ctx.Values() {
		values[key] = vals
	}

	if len(values) == 0 {
		return path
	}

	return path + "?" + values.Encode()
}

func (r *Resolver) Satisfied(family Family) bool {
	ctx := r.Active()
	switch family {
	case FamilyTenant:
		return ctx.TenantID != ""
	case FamilyLeague:
		return ctx.TenantID != "" && ctx.LeagueID != ""
	case FamilyTeam:
		return ctx.TenantID != "" && ctx.LeagueID != "" && ctx.TeamID != ""
	default:
		return true
	}
}
