package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"league-console/internal/apiclient"
	"league-console/internal/middleware"
	"league-console/internal/model"
	"league-console/internal/scope"
	"league-console/internal/session"
)

// View is the payload of every console page.
type View struct {
	Name        string            `json:"view"`
	Family      string            `json:"family,omitempty"`
	ScopeKind   string            `json:"scopeKind,omitempty"`
	Context     scope.Context     `json:"context"`
	Links       map[string]string `json:"links,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	Items       any               `json:"items,omitempty"`
	Drilldown   map[string]string `json:"drilldown,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type navLink struct {
	name string
	path string
}

// Sub-navigation shown once a family's context is satisfied.
var navigation = map[scope.Family][]navLink{
	scope.FamilyNone: {
		{"dashboard", "/admin/dashboard"},
		{"tenants", "/admin/tenants"},
	},
	scope.FamilyTenant: {
		{"leagues", "/tenant/leagues"},
		{"posts", "/tenant/posts"},
	},
	scope.FamilyLeague: {
		{"teams", "/league/teams"},
		{"seasons", "/league/seasons"},
		{"games", "/league/games"},
		{"posts", "/league/posts"},
	},
	scope.FamilyTeam: {
		{"players", "/team/players"},
		{"games", "/team/games"},
	},
}

// HomePath is where /dashboard sends a user with the given primary role.
func HomePath(role model.Role) string {
	switch role {
	case model.RoleSystemAdmin:
		return "/admin/dashboard"
	case model.RoleTenantAdmin:
		return "/tenant/dashboard"
	case model.RoleLeagueAdmin:
		return "/league/dashboard"
	case model.RoleTeamAdmin:
		return "/team/dashboard"
	default:
		return "/public/leagues"
	}
}

func newView(name string, resolver *scope.Resolver, family scope.Family) View {
	v := View{
		Name:      name,
		Family:    family.String(),
		ScopeKind: resolver.Scope().Kind.String(),
		Context:   resolver.Active(),
	}

	if !resolver.Satisfied(family) {
		v.Placeholder = family.Placeholder()
		return v
	}

	v.Links = make(map[string]string, len(navigation[family]))
	for _, link := range navigation[family] {
		v.Links[link.name] = resolver.BuildLink(link.path, scope.Context{})
	}

	return v
}

// scopeFilters narrows a backend listing to the ids the family requires.
func scopeFilters(ctx scope.Context, family scope.Family) url.Values {
	switch family {
	case scope.FamilyTenant:
		return scope.Context{TenantID: ctx.TenantID}.Values()
	case scope.FamilyLeague:
		return scope.Context{TenantID: ctx.TenantID, LeagueID: ctx.LeagueID}.Values()
	case scope.FamilyTeam:
		return ctx.Values()
	default:
		return url.Values{}
	}
}

func pageOptions(r *http.Request, filters url.Values) apiclient.ListOptions {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return apiclient.ListOptions{Page: page, Limit: limit, Filters: filters}
}

// inlineError is the message a view shows in place of data it failed to
// load.
func inlineError(err error) string {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" && statusErr.StatusCode < 500 {
		return statusErr.Message
	}
	if errors.Is(err, model.ErrNotFound) {
		return "not found"
	}
	return "the league service is unavailable, try again shortly"
}

// sessionEnded redirects to the login page when err means the session was
// just ended by a failed refresh. It reports whether it wrote a response.
func sessionEnded(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, model.ErrSessionExpired) {
		return false
	}

	http.Redirect(w, r, middleware.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
	return true
}

func requestScope(w http.ResponseWriter, r *http.Request) (*session.Store, *scope.Resolver, bool) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok {
		slog.Error("console view served without a session", "path", r.URL.Path)
		writeError(w, errors.New("session middleware missing"))
		return nil, nil, false
	}

	resolver, ok := middleware.ResolverFromContext(r.Context())
	if !ok {
		resolver = scope.NewResolver(scope.ForUser(store.User()), r.URL.Query())
	}

	return store, resolver, true
}
