package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"league-console/internal/apiclient"
	"league-console/internal/model"
	"league-console/internal/scope"
)

// PublicHandler serves the pages anyone can browse, through a client that
// carries no session.
type PublicHandler struct {
	client *apiclient.Client
}

func NewPublicHandler(client *apiclient.Client) *PublicHandler {
	return &PublicHandler{client: client}
}

type publicView struct {
	Name  string `json:"view"`
	Items any    `json:"items,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *PublicHandler) Leagues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := scope.Context{TenantID: q.Get(scope.ParamTenantID)}.Values()
	page, err := apiclient.List[model.League](r.Context(), h.client, apiclient.PathLeagues, pageOptions(r, filters))
	if err != nil {
		h.render(w, "public_leagues", nil, nil, err)
		return
	}
	h.render(w, "public_leagues", page.Data, model.MetaFromPage(page), nil)
}

func (h *PublicHandler) Teams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := scope.Context{TenantID: q.Get(scope.ParamTenantID), LeagueID: q.Get(scope.ParamLeagueID)}.Values()
	page, err := apiclient.List[model.Team](r.Context(), h.client, apiclient.PathTeams, pageOptions(r, filters))
	if err != nil {
		h.render(w, "public_teams", nil, nil, err)
		return
	}
	h.render(w, "public_teams", page.Data, model.MetaFromPage(page), nil)
}

func (h *PublicHandler) League(w http.ResponseWriter, r *http.Request) {
	league, err := apiclient.Get[model.League](r.Context(), h.client, apiclient.LeaguePath(chi.URLParam(r, "id")))
	if h.notFound(w, err) {
		return
	}
	h.render(w, "public_league", league, nil, err)
}

func (h *PublicHandler) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := apiclient.Get[[]model.Standing](r.Context(), h.client, apiclient.StandingsPath(chi.URLParam(r, "id")))
	if h.notFound(w, err) {
		return
	}

	var items any
	if standings != nil {
		items = *standings
	}
	h.render(w, "public_standings", items, nil, err)
}

func (h *PublicHandler) notFound(w http.ResponseWriter, err error) bool {
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, err)
		return true
	}
	return false
}

func (h *PublicHandler) render(w http.ResponseWriter, name string, items any, meta *model.Meta, err error) {
	v := publicView{Name: name}
	if err != nil {
		slog.Warn("public fetch failed", "view", name, "error", err)
		v.Error = inlineError(err)
		writeSuccess(w, http.StatusOK, v, nil)
		return
	}

	v.Items = items
	writeSuccess(w, http.StatusOK, v, meta)
}
