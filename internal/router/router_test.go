package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"league-console/internal/config"
	"league-console/internal/devbackend"
	"league-console/internal/event"
	"league-console/internal/handler"
	"league-console/internal/metrics"
	"league-console/internal/middleware"
	"league-console/internal/model"
	"league-console/internal/scope"
	"league-console/internal/session"
	"league-console/internal/websocket"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

type listView[T any] struct {
	Name        string            `json:"view"`
	Context     scope.Context     `json:"context"`
	Links       map[string]string `json:"links"`
	Placeholder string            `json:"placeholder"`
	Items       []T               `json:"items"`
	Drilldown   map[string]string `json:"drilldown"`
	Error       string            `json:"error"`
}

type consoleFixture struct {
	backend   *devbackend.Backend
	broken    *atomic.Bool
	persister *session.MemoryPersister
	server    *httptest.Server
	client    *http.Client
}

func newConsole(t *testing.T) *consoleFixture {
	t.Helper()

	b, err := devbackend.New(devbackend.Config{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	broken := &atomic.Bool{}
	api := b.Handler()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if broken.Load() && !strings.HasPrefix(r.URL.Path, "/auth/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"statusCode":503,"message":"maintenance"}`))
			return
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(backend.Close)

	bus := event.NewBus()
	persister := session.NewMemoryPersister()
	manager := session.NewManager(session.ManagerConfig{
		BackendURL: backend.URL,
		Persister:  persister,
		Bus:        bus,
	})

	cfg := &config.Config{
		RequestTimeout:   5 * time.Second,
		CORSOrigins:      []string{"*"},
		AuthRateLimitRPM: 1000,
	}

	hub := websocket.NewHub(bus)
	reg, m := metrics.NewRegistry()
	h := New(cfg, middleware.NewSessionMiddleware(manager, session.CookieOptions{}), Handlers{
		Auth:           handler.NewAuthHandler(),
		Console:        handler.NewConsoleHandler(),
		Public:         handler.NewPublicHandler(manager.Anonymous()),
		Stream:         handler.NewSessionStreamHandler(hub, cfg.CORSOrigins),
		Metrics:        m,
		MetricsHandler: metrics.Handler(reg),
	})

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &consoleFixture{
		backend:   b,
		broken:    broken,
		persister: persister,
		server:    server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (f *consoleFixture) do(t *testing.T, method string, path string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}

	return resp, env
}

func (f *consoleFixture) login(t *testing.T, username string) {
	t.Helper()

	resp, env := f.do(t, http.MethodPost, "/auth/login", model.LoginRequest{
		UsernameOrEmail: username,
		Password:        devbackend.DefaultPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login %s: %+v", username, env.Error)
}

func (f *consoleFixture) cookie(name string) string {
	u, _ := url.Parse(f.server.URL)
	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestLoginSetsCookiesAndRedirectsHome(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	resp, env := f.do(t, http.MethodPost, "/auth/login", model.LoginRequest{
		UsernameOrEmail: "league.admin",
		Password:        devbackend.DefaultPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeData[struct {
		User     model.User `json:"user"`
		Redirect string     `json:"redirect"`
	}](t, env)
	assert.Equal(t, "u-league", result.User.ID)
	assert.Equal(t, "/league/dashboard", result.Redirect)

	assert.NotEmpty(t, f.cookie(session.CookieSessionID))
	assert.NotEmpty(t, f.cookie(session.CookieAccessToken))
	assert.Equal(t, string(model.RoleLeagueAdmin), f.cookie(session.CookieUserRole))
	assert.Equal(t, 1, f.persister.Len())

	resp, _ = f.do(t, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/league/dashboard?leagueId=L1&tenantId=T1", resp.Header.Get("Location"))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	resp, env := f.do(t, http.MethodPost, "/auth/login", model.LoginRequest{
		UsernameOrEmail: "league.admin",
		Password:        "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	assert.Empty(t, f.cookie(session.CookieAccessToken))
}

func TestLoginHonorsSafeNext(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	resp, env := f.do(t, http.MethodPost, "/auth/login?next="+url.QueryEscape("/league/teams"), model.LoginRequest{
		UsernameOrEmail: "league.admin",
		Password:        devbackend.DefaultPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeData[struct {
		Redirect string `json:"redirect"`
	}](t, env)
	assert.Equal(t, "/league/teams", result.Redirect)

	f2 := newConsole(t)
	_, env = f2.do(t, http.MethodPost, "/auth/login?next="+url.QueryEscape("//evil.example"), model.LoginRequest{
		UsernameOrEmail: "league.admin",
		Password:        devbackend.DefaultPassword,
	})
	result = decodeData[struct {
		Redirect string `json:"redirect"`
	}](t, env)
	assert.Equal(t, "/league/dashboard", result.Redirect)
}

func TestConsoleRequiresSignIn(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	resp, _ := f.do(t, http.MethodGet, "/league/teams?leagueId=L1", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fleague%2Fteams%3FleagueId%3DL1", resp.Header.Get("Location"))
}

func TestLeagueAdminListsTeamsWithDrilldown(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")

	resp, env := f.do(t, http.MethodGet, "/league/teams", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decodeData[listView[model.Team]](t, env)
	assert.Equal(t, "league_teams", v.Name)
	assert.Equal(t, scope.Context{TenantID: "T1", LeagueID: "L1"}, v.Context)
	assert.Empty(t, v.Placeholder)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "/team/players?leagueId=L1&teamId=TM1&tenantId=T1", v.Drilldown["TM1"])
	assert.Equal(t, "/league/seasons?leagueId=L1&tenantId=T1", v.Links["seasons"])
}

func TestLeagueAdminFollowsDrilldownIntoTeam(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")

	_, env := f.do(t, http.MethodGet, "/league/teams", nil)
	teams := decodeData[listView[model.Team]](t, env)
	link := teams.Drilldown["TM1"]
	require.NotEmpty(t, link)

	resp, env := f.do(t, http.MethodGet, link, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	players := decodeData[listView[model.Player]](t, env)
	assert.Equal(t, scope.Context{TenantID: "T1", LeagueID: "L1", TeamID: "TM1"}, players.Context)
	assert.Len(t, players.Items, 2)
	assert.Equal(t, "/team/games?leagueId=L1&teamId=TM1&tenantId=T1", players.Links["games"])
}

func TestSystemAdminSeesPlaceholderUntilLeagueSelected(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "root")

	_, env := f.do(t, http.MethodGet, "/league/teams?tenantId=T1", nil)
	v := decodeData[listView[model.Team]](t, env)
	assert.Equal(t, "select_league", v.Placeholder)
	assert.Empty(t, v.Items)

	_, env = f.do(t, http.MethodGet, "/league/teams?tenantId=T1&leagueId=L1", nil)
	v = decodeData[listView[model.Team]](t, env)
	assert.Empty(t, v.Placeholder)
	assert.Len(t, v.Items, 2)

	_, env = f.do(t, http.MethodGet, "/admin/tenants", nil)
	tenants := decodeData[listView[model.Tenant]](t, env)
	assert.Len(t, tenants.Items, 2)
	assert.Equal(t, "/tenant/leagues?tenantId=T2", tenants.Drilldown["T2"])
}

func TestExactRoleViewDeniesOtherRoles(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")

	resp, _ := f.do(t, http.MethodGet, "/team/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/access-denied?reason=team_admin_only", resp.Header.Get("Location"))

	resp, env := f.do(t, http.MethodGet, resp.Header.Get("Location"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	denied := decodeData[struct {
		Reason string `json:"reason"`
		Home   string `json:"home"`
	}](t, env)
	assert.Equal(t, "team_admin_only", denied.Reason)
	assert.Equal(t, "/league/dashboard", denied.Home)
}

func TestExpiredAccessTokenIsRefreshedTransparently(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")
	before := f.cookie(session.CookieAccessToken)

	f.backend.RevokeAccessTokens()

	resp, env := f.do(t, http.MethodGet, "/league/teams", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeData[listView[model.Team]](t, env)
	assert.Len(t, v.Items, 2)
	assert.Empty(t, v.Error)

	assert.Equal(t, int64(1), f.backend.Hits("POST /auth/refresh"))
	assert.NotEqual(t, before, f.cookie(session.CookieAccessToken))
}

func TestFailedRefreshEndsSession(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")

	f.backend.RevokeAccessTokens()
	f.backend.FailRefresh(true)

	resp, _ := f.do(t, http.MethodGet, "/league/teams", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fleague%2Fteams", resp.Header.Get("Location"))

	assert.Empty(t, f.cookie(session.CookieAccessToken))
	assert.Zero(t, f.persister.Len())

	resp, _ = f.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBackendOutageShowsInlineError(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")
	f.broken.Store(true)

	resp, env := f.do(t, http.MethodGet, "/league/teams", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decodeData[listView[model.Team]](t, env)
	assert.Equal(t, "the league service is unavailable, try again shortly", v.Error)
	assert.Empty(t, v.Items)
	assert.NotEmpty(t, v.Links)
	assert.NotEmpty(t, f.cookie(session.CookieAccessToken))
}

func TestCreateLeaguePost(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")

	resp, env := f.do(t, http.MethodPost, "/league/posts", model.CreatePostRequest{Title: "Opening day", Content: "Gates open at noon."})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	post := decodeData[model.Post](t, env)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "L1", post.LeagueID)
	assert.Equal(t, "T1", post.TenantID)

	resp, env = f.do(t, http.MethodPost, "/league/posts", model.CreatePostRequest{Title: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)

	_, env = f.do(t, http.MethodGet, "/league/posts", nil)
	posts := decodeData[listView[model.Post]](t, env)
	assert.Len(t, posts.Items, 2)
}

func TestPublicPagesNeedNoSession(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	resp, env := f.do(t, http.MethodGet, "/public/leagues/L1/standings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	standings := decodeData[struct {
		Items []model.Standing `json:"items"`
	}](t, env)
	require.NotEmpty(t, standings.Items)
	assert.Equal(t, "TM1", standings.Items[0].TeamID)

	resp, env = f.do(t, http.MethodGet, "/public/leagues/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	assert.Empty(t, f.cookie(session.CookieSessionID))
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "team.admin")

	resp, _ := f.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, f.cookie(session.CookieAccessToken))
	assert.Empty(t, f.cookie(session.CookieUserRole))

	resp, _ = f.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionStreamFollowsLogout(t *testing.T) {
	t.Parallel()

	f := newConsole(t)
	f.login(t, "league.admin")

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/session"
	dialer := gorillaws.Dialer{Jar: f.client.Jar, HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	readType := func() string {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var frame map[string]any
		require.NoError(t, conn.ReadJSON(&frame))
		typ, _ := frame["type"].(string)
		return typ
	}

	assert.Equal(t, websocket.TypeConnected, readType())

	logout, _ := f.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, logout.StatusCode)

	assert.Equal(t, string(event.TypeSessionLogout), readType())
}

func TestSessionStreamRejectsAnonymous(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/session"
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	resp, _ := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestMetricsRecordRoutePatterns(t *testing.T) {
	t.Parallel()

	f := newConsole(t)

	resp, _ := f.do(t, http.MethodGet, "/public/leagues/L1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := f.client.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `console_http_requests_total{method="GET",route="/public/leagues/{id}",status="200"} 1`)
}
