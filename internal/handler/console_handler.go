package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"league-console/internal/apiclient"
	"league-console/internal/model"
	"league-console/internal/scope"
	"league-console/pkg/apierror"
)

// ConsoleHandler serves the role dashboards and their scoped listings.
type ConsoleHandler struct{}

func NewConsoleHandler() *ConsoleHandler {
	return &ConsoleHandler{}
}

// Home sends the user to their primary role's dashboard, keeping any scope
// already in the URL.
func (h *ConsoleHandler) Home(w http.ResponseWriter, r *http.Request) {
	store, resolver, ok := requestScope(w, r)
	if !ok {
		return
	}

	home := HomePath(store.User().PrimaryRole())
	http.Redirect(w, r, resolver.BuildLink(home, scope.Context{}), http.StatusSeeOther)
}

func (h *ConsoleHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "admin_dashboard", scope.FamilyNone)
}

func (h *ConsoleHandler) TenantDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "tenant_dashboard", scope.FamilyTenant)
}

// LeagueDashboard shows the league and its standings next to the league
// navigation.
func (h *ConsoleHandler) LeagueDashboard(w http.ResponseWriter, r *http.Request) {
	store, resolver, ok := requestScope(w, r)
	if !ok {
		return
	}

	v := newView("league_dashboard", resolver, scope.FamilyLeague)
	if v.Placeholder != "" {
		writeSuccess(w, http.StatusOK, v, nil)
		return
	}

	leagueID := resolver.Active().LeagueID
	league, err := apiclient.Get[model.League](r.Context(), store.Client(), apiclient.LeaguePath(leagueID))
	if err == nil {
		var standings *[]model.Standing
		standings, err = apiclient.Get[[]model.Standing](r.Context(), store.Client(), apiclient.StandingsPath(leagueID))
		if err == nil {
			v.Items = map[string]any{"league": league, "standings": *standings}
		}
	}
	if err != nil {
		if sessionEnded(w, r, err) {
			return
		}
		slog.Warn("league dashboard fetch failed", "league_id", leagueID, "error", err)
		v.Error = inlineError(err)
	}

	writeSuccess(w, http.StatusOK, v, nil)
}

func (h *ConsoleHandler) TeamDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "team_dashboard", scope.FamilyTeam)
}

func (h *ConsoleHandler) dashboard(w http.ResponseWriter, r *http.Request, name string, family scope.Family) {
	_, resolver, ok := requestScope(w, r)
	if !ok {
		return
	}

	writeSuccess(w, http.StatusOK, newView(name, resolver, family), nil)
}

func (h *ConsoleHandler) Tenants(w http.ResponseWriter, r *http.Request) {
	renderList(w, r, "tenants", apiclient.PathTenants, func(res *scope.Resolver, t model.Tenant) (string, string) {
		return t.ID, res.BuildLink("/tenant/leagues", scope.Context{TenantID: t.ID})
	})
}

func (h *ConsoleHandler) TenantLeagues(w http.ResponseWriter, r *http.Request) {
	renderList(w, r, "tenant_leagues", apiclient.PathLeagues, func(res *scope.Resolver, l model.League) (string, string) {
		return l.ID, res.BuildLink("/league/teams", scope.Context{TenantID: l.TenantID, LeagueID: l.ID})
	})
}

func (h *ConsoleHandler) TenantPosts(w http.ResponseWriter, r *http.Request) {
	renderList[model.Post](w, r, "tenant_posts", apiclient.PathPosts, nil)
}

func (h *ConsoleHandler) LeagueTeams(w http.ResponseWriter, r *http.Request) {
	renderList(w, r, "league_teams", apiclient.PathTeams, func(res *scope.Resolver, t model.Team) (string, string) {
		return t.ID, res.BuildLink("/team/players", scope.Context{TenantID: t.TenantID, LeagueID: t.LeagueID, TeamID: t.ID})
	})
}

func (h *ConsoleHandler) LeagueSeasons(w http.ResponseWriter, r *http.Request) {
	renderList[model.Season](w, r, "league_seasons", apiclient.PathSeasons, nil)
}

func (h *ConsoleHandler) LeagueGames(w http.ResponseWriter, r *http.Request) {
	renderList[model.Game](w, r, "league_games", apiclient.PathGames, nil)
}

func (h *ConsoleHandler) LeaguePosts(w http.ResponseWriter, r *http.Request) {
	renderList[model.Post](w, r, "league_posts", apiclient.PathPosts, nil)
}

func (h *ConsoleHandler) TeamPlayers(w http.ResponseWriter, r *http.Request) {
	renderList[model.Player](w, r, "team_players", apiclient.PathPlayers, nil)
}

func (h *ConsoleHandler) TeamGames(w http.ResponseWriter, r *http.Request) {
	renderList[model.Game](w, r, "team_games", apiclient.PathGames, nil)
}

// CreateLeaguePost publishes a post in the active league.
func (h *ConsoleHandler) CreateLeaguePost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	store, resolver, ok := requestScope(w, r)
	if !ok {
		return
	}

	if !resolver.Satisfied(scope.FamilyLeague) {
		writeError(w, apierror.BadRequest("a league must be selected", scope.FamilyLeague.Placeholder()))
		return
	}

	var payload model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		writeError(w, apierror.BadRequest("title is required", "title"))
		return
	}

	active := resolver.Active()
	post, err := apiclient.Create[model.Post](r.Context(), store.Client(), apiclient.PathPosts, model.Post{
		TenantID: active.TenantID,
		LeagueID: active.LeagueID,
		Title:    payload.Title,
		Content:  payload.Content,
	})
	if err != nil {
		if sessionEnded(w, r, err) {
			return
		}
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, post, nil)
}

// renderList is the shared body of every scoped listing. A route whose
// context is missing gets the placeholder and backend failures are shown
// inline. drill maps an item to its id and the link that opens it.
func renderList[T any](w http.ResponseWriter, r *http.Request, name string, path string, drill func(*scope.Resolver, T) (string, string)) {
	store, resolver, ok := requestScope(w, r)
	if !ok {
		return
	}

	family := scope.FamilyOf(r.URL.Path)
	v := newView(name, resolver, family)
	if v.Placeholder != "" {
		writeSuccess(w, http.StatusOK, v, nil)
		return
	}

	page, err := apiclient.List[T](r.Context(), store.Client(), path, pageOptions(r, scopeFilters(resolver.Active(), family)))
	if err != nil {
		if sessionEnded(w, r, err) {
			return
		}
		slog.Warn("list fetch failed", "view", name, "error", err)
		v.Error = inlineError(err)
		writeSuccess(w, http.StatusOK, v, nil)
		return
	}

	v.Items = page.Data
	if drill != nil {
		v.Drilldown = make(map[string]string, len(page.Data))
		for _, item := range page.Data {
			id, link := drill(resolver, item)
			v.Drilldown[id] = link
		}
	}

	writeSuccess(w, http.StatusOK, v, model.MetaFromPage(page))
}
