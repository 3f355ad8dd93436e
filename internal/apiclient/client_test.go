package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-console/internal/model"
)

type fakeHooks struct {
	mu           sync.Mutex
	client       *Client
	refreshToken string
	set          []*model.TokenPair
	logouts      int
	// Durable copy written by some other request for the same session.
	persisted *model.TokenPair
}

func (h *fakeHooks) RefreshToken() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshToken
}

func (h *fakeHooks) SetTokens(_ context.Context, tokens *model.TokenPair) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.set = append(h.set, tokens)
	h.refreshToken = tokens.RefreshToken
	h.client.SetAuthToken(tokens.AccessToken)
	return nil
}

func (h *fakeHooks) AdoptRotated(_ context.Context, stale string) (*model.TokenPair, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.persisted == nil || h.persisted.RefreshToken == stale {
		return nil, false
	}
	h.refreshToken = h.persisted.RefreshToken
	h.client.SetAuthToken(h.persisted.AccessToken)
	return h.persisted.Clone(), true
}

func (h *fakeHooks) Logout(_ context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logouts++
	h.refreshToken = ""
	h.client.SetAuthToken("")
}

type fakeBackend struct {
	server        *httptest.Server
	resourceHits  atomic.Int32
	refreshHits   atomic.Int32
	validToken    atomic.Value
	refreshStatus int
	lastAuth      atomic.Value
	onRefresh     atomic.Value
}

func newFakeBackend(t *testing.T, refreshStatus int) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{refreshStatus: refreshStatus}
	fb.validToken.Store("fresh-access")
	fb.lastAuth.Store("")

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		fb.refreshHits.Add(1)
		if hook, ok := fb.onRefresh.Load().(func()); ok {
			hook()
		}
		if fb.refreshStatus != http.StatusOK {
			w.WriteHeader(fb.refreshStatus)
			_, _ = w.Write([]byte(`{"message":"refresh token invalid"}`))
			return
		}
		var body model.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(model.TokenPair{AccessToken: "fresh-access", RefreshToken: "fresh-refresh"})
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	})
	mux.HandleFunc("/leagues", func(w http.ResponseWriter, r *http.Request) {
		fb.resourceHits.Add(1)
		fb.lastAuth.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer "+fb.validToken.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(model.Page[model.League]{
			Data:        []model.League{{ID: "L1", Name: "Premier", TenantID: r.URL.Query().Get("tenantId")}},
			TotalItems:  1,
			TotalPages:  1,
			CurrentPage: 1,
			PageSize:    20,
		})
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

func newBoundClient(t *testing.T, fb *fakeBackend, accessToken string, refreshToken string) (*Client, *fakeHooks) {
	t.Helper()

	client := New(fb.server.URL)
	client.SetAuthToken(accessToken)
	hooks := &fakeHooks{client: client, refreshToken: refreshToken}
	client.Bind(hooks)
	return client, hooks
}

func TestClientAttachesBearerToken(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	client, hooks := newBoundClient(t, fb, "fresh-access", "r1")

	page, err := List[model.League](context.Background(), client, PathLeagues, ListOptions{
		Page:    1,
		Limit:   20,
		Filters: map[string][]string{"tenantId": {"T1"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "T1", page.Data[0].TenantID)
	assert.Equal(t, "Bearer fresh-access", fb.lastAuth.Load())
	assert.Zero(t, fb.refreshHits.Load())
	assert.Zero(t, hooks.logouts)
}

func TestClientRefreshesOnceAndRetries(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	client, hooks := newBoundClient(t, fb, "stale-access", "r1")

	page, err := List[model.League](context.Background(), client, PathLeagues, ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	assert.EqualValues(t, 2, fb.resourceHits.Load())
	assert.EqualValues(t, 1, fb.refreshHits.Load())
	require.Len(t, hooks.set, 1)
	assert.Equal(t, "fresh-refresh", hooks.set[0].RefreshToken)
	assert.Equal(t, "fresh-access", client.AuthToken())
	assert.Equal(t, "Bearer fresh-access", fb.lastAuth.Load())
	assert.Zero(t, hooks.logouts)
}

func TestClientRetriesAtMostOnce(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	fb.validToken.Store("never-valid")
	client, hooks := newBoundClient(t, fb, "stale-access", "r1")

	_, err := List[model.League](context.Background(), client, PathLeagues, ListOptions{})
	require.Error(t, err)

	assert.ErrorIs(t, err, model.ErrSessionExpired)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.EqualValues(t, 2, fb.resourceHits.Load())
	assert.EqualValues(t, 1, fb.refreshHits.Load())
	assert.Equal(t, 1, hooks.logouts)
	assert.Empty(t, client.AuthToken())
}

func TestClientLogsOutWhenRefreshFails(t *testing.T) {
	fb := newFakeBackend(t, http.StatusBadRequest)
	client, hooks := newBoundClient(t, fb, "stale-access", "r1")

	_, err := List[model.League](context.Background(), client, PathLeagues, ListOptions{})
	require.Error(t, err)

	assert.ErrorIs(t, err, model.ErrSessionExpired)
	assert.EqualValues(t, 1, fb.resourceHits.Load())
	assert.EqualValues(t, 1, fb.refreshHits.Load())
	assert.Equal(t, 1, hooks.logouts)
	assert.Empty(t, hooks.set)
}

func TestClientReplaysWithTokensRotatedElsewhere(t *testing.T) {
	fb := newFakeBackend(t, http.StatusBadRequest)
	client, hooks := newBoundClient(t, fb, "stale-access", "r1")
	hooks.persisted = &model.TokenPair{AccessToken: "fresh-access", RefreshToken: "r2"}

	page, err := List[model.League](context.Background(), client, PathLeagues, ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	assert.Zero(t, fb.refreshHits.Load())
	assert.EqualValues(t, 2, fb.resourceHits.Load())
	assert.Equal(t, "Bearer fresh-access", fb.lastAuth.Load())
	assert.Equal(t, "r2", hooks.RefreshToken())
	assert.Zero(t, hooks.logouts)
}

func TestClientRefreshOutlivesCancelledCaller(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	client, hooks := newBoundClient(t, fb, "stale-access", "r1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fb.onRefresh.Store(func() { cancel() })

	_, err := List[model.League](ctx, client, PathLeagues, ListOptions{})
	require.Error(t, err)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, model.ErrSessionExpired)
	assert.EqualValues(t, 1, fb.refreshHits.Load())
	require.Len(t, hooks.set, 1)
	assert.Equal(t, "fresh-refresh", hooks.set[0].RefreshToken)
	assert.Equal(t, "fresh-access", client.AuthToken())
	assert.Zero(t, hooks.logouts)
}

func TestClientLogsOutWithoutRefreshToken(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	client, hooks := newBoundClient(t, fb, "stale-access", "")

	_, err := List[model.League](context.Background(), client, PathLeagues, ListOptions{})
	require.Error(t, err)

	assert.ErrorIs(t, err, model.ErrSessionExpired)
	assert.ErrorIs(t, err, model.ErrNoRefreshToken)
	assert.Zero(t, fb.refreshHits.Load())
	assert.Equal(t, 1, hooks.logouts)
}

func TestClientWithoutHooksPropagatesUnauthorized(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	client := New(fb.server.URL)

	_, err := List[model.League](context.Background(), client, PathLeagues, ListOptions{})
	require.Error(t, err)

	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.NotErrorIs(t, err, model.ErrSessionExpired)
	assert.Zero(t, fb.refreshHits.Load())
}

func TestClientPropagatesServerErrors(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	client, hooks := newBoundClient(t, fb, "fresh-access", "r1")

	_, err := Get[model.League](context.Background(), client, "/broken")
	require.Error(t, err)

	assert.ErrorIs(t, err, model.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Zero(t, fb.refreshHits.Load())
	assert.Zero(t, hooks.logouts)
}

func TestLoginRejectionIsInvalidCredentials(t *testing.T) {
	fb := newFakeBackend(t, http.StatusOK)
	client, hooks := newBoundClient(t, fb, "", "r1")

	_, err := client.Login(context.Background(), model.LoginRequest{UsernameOrEmail: "coach", Password: "wrong"})
	require.Error(t, err)

	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Zero(t, fb.refreshHits.Load())
	assert.Zero(t, hooks.logouts)
}

func TestBuildLinkHelpers(t *testing.T) {
	assert.Equal(t, "/leagues/a%2Fb/standings", StandingsPath("a/b"))

	opts := ListOptions{Page: 2, Limit: 10, Filters: map[string][]string{"leagueId": {"L1", ""}}}
	assert.Equal(t, "leagueId=L1&limit=10&page=2", opts.values().Encode())
}
