package devbackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"league-console/internal/model"
	"league-console/pkg/apierror"
)

type contextKey string

const subjectKey contextKey = "subject"

func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(b.countRoutes)

	r.Route("/auth", func(auth chi.Router) {
		auth.Post("/login", b.handleLogin)
		auth.Post("/refresh", b.handleRefresh)
		auth.Post("/logout", b.handleLogout)
		auth.With(b.requireToken).Get("/me", b.handleMe)
	})

	r.Group(func(public chi.Router) {
		public.Use(b.optionalToken)
		public.Get("/tenants", b.handleTenants)
		public.Get("/leagues", b.handleLeagues)
		public.Get("/leagues/{id}", b.handleLeague)
		public.Get("/leagues/{id}/standings", b.handleStandings)
		public.Get("/teams", b.handleTeams)
		public.Get("/players", b.handlePlayers)
		public.Get("/seasons", b.handleSeasons)
		public.Get("/games", b.handleGames)
		public.Get("/posts", b.handlePosts)
	})

	r.With(b.requireToken).Post("/posts", b.handleCreatePost)

	return r
}

func (b *Backend) countRoutes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.countHit(r.Method + " " + r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[7:]), true
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			writeError(w, apierror.New("UNAUTHORIZED", "missing bearer token", "", http.StatusUnauthorized))
			return
		}
		claims, err := b.validate(token, "access")
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSubject(r, claims.subject)))
	})
}

// optionalToken lets anonymous reads through but rejects a bad token, so a
// stale session still hits the console's refresh path.
func (b *Backend) optionalToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := b.validate(token, "access")
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSubject(r, claims.subject)))
	})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	resp, err := b.login(payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.RefreshToken) == "" {
		writeError(w, apierror.New("BAD_REQUEST", "refreshToken is required", "refreshToken", http.StatusBadRequest))
		return
	}

	pair, err := b.refresh(strings.TrimSpace(payload.RefreshToken))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&payload)
	b.logout(strings.TrimSpace(payload.RefreshToken))
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := b.userByID(subjectFrom(r))
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "user not found", "", http.StatusUnauthorized))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) handleTenants(w http.ResponseWriter, r *http.Request) {
	b.data.mu.RLock()
	items := append([]model.Tenant{}, b.data.tenants...)
	b.data.mu.RUnlock()
	writePage(w, r, items)
}

func (b *Backend) handleLeagues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.data.mu.RLock()
	items := filter(b.data.leagues, func(l model.League) bool { return matches(q, "tenantId", l.TenantID) })
	b.data.mu.RUnlock()
	writePage(w, r, items)
}

func (b *Backend) handleLeague(w http.ResponseWriter, r *http.Request) {
	league, ok := b.data.league(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, apierror.New("NOT_FOUND", "league not found", chi.URLParam(r, "id"), http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, league)
}

func (b *Backend) handleStandings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := b.data.league(id); !ok {
		writeError(w, apierror.New("NOT_FOUND", "league not found", id, http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, b.data.standings(id))
}

func (b *Backend) handleTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.data.mu.RLock()
	items := filter(b.data.teams, func(t model.Team) bool {
		return matches(q, "tenantId", t.TenantID) && matches(q, "leagueId", t.LeagueID)
	})
	b.data.mu.RUnlock()
	writePage(w, r, items)
}

func (b *Backend) handlePlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.data.mu.RLock()
	items := filter(b.data.players, func(p model.Player) bool { return matches(q, "teamId", p.TeamID) })
	b.data.mu.RUnlock()
	writePage(w, r, items)
}

func (b *Backend) handleSeasons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.data.mu.RLock()
	items := filter(b.data.seasons, func(s model.Season) bool { return matches(q, "leagueId", s.LeagueID) })
	b.data.mu.RUnlock()
	writePage(w, r, items)
}

func (b *Backend) handleGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	teamID := q.Get("teamId")
	b.data.mu.RLock()
	items := filter(b.data.games, func(g model.Game) bool {
		if teamID != "" && g.HomeTeamID != teamID && g.AwayTeamID != teamID {
			return false
		}
		return matches(q, "leagueId", g.LeagueID)
	})
	b.data.mu.RUnlock()
	writePage(w, r, items)
}

func (b *Backend) handlePosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.data.mu.RLock()
	items := filter(b.data.posts, func(p model.Post) bool {
		return matches(q, "tenantId", p.TenantID) && matches(q, "leagueId", p.LeagueID) && matches(q, "teamId", p.TeamID)
	})
	b.data.mu.RUnlock()
	writePage(w, r, items)
}

func (b *Backend) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var post model.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(post.Title) == "" {
		writeError(w, apierror.New("BAD_REQUEST", "title is required", "title", http.StatusBadRequest))
		return
	}

	post.AuthorID = subjectFrom(r)
	writeJSON(w, http.StatusCreated, b.data.addPost(post))
}

func matches(q url.Values, key string, value string) bool {
	want := q.Get(key)
	return want == "" || want == value
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, paginate(items, page, limit))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "unexpected error"

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		message = apiErr.Message
	}

	writeJSON(w, status, map[string]any{"statusCode": status, "message": message})
}
