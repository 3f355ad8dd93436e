package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"league-console/internal/apiclient"
	"league-console/internal/event"
)

type ManagerConfig struct {
	BackendURL    string
	HTTPClient    *http.Client
	Persister     Persister
	Bus           event.Bus
	LogoutTimeout time.Duration
}

// Manager hands out one Store per browser session per request. All stores
// share the durable persister and one refresh group.
type Manager struct {
	backendURL    string
	httpClient    *http.Client
	persist       Persister
	bus           event.Bus
	logoutTimeout time.Duration
	refreshGroup  *singleflight.Group
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Persister == nil {
		cfg.Persister = NewMemoryPersister()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Manager{
		backendURL:    cfg.BackendURL,
		httpClient:    cfg.HTTPClient,
		persist:       cfg.Persister,
		bus:           cfg.Bus,
		logoutTimeout: cfg.LogoutTimeout,
		refreshGroup:  &singleflight.Group{},
	}
}

// Open returns the rehydrated store for sid. An empty or malformed sid starts
// a new session; created reports that case so the caller can set the cookie.
func (m *Manager) Open(ctx context.Context, sid string, cookies CookieMirror) (*Store, bool, error) {
	created := false
	if _, err := uuid.Parse(strings.TrimSpace(sid)); err != nil {
		sid = uuid.NewString()
		created = true
	}

	client := apiclient.New(m.backendURL,
		apiclient.WithHTTPClient(m.httpClient),
		apiclient.WithRefreshGroup(m.refreshGroup),
	)

	store := NewStore(sid, client, StoreConfig{
		Persister:     m.persist,
		Cookies:       cookies,
		Bus:           m.bus,
		LogoutTimeout: m.logoutTimeout,
	})

	if created {
		return store, true, nil
	}

	if err := store.Rehydrate(ctx); err != nil {
		return nil, false, err
	}

	return store, false, nil
}

// Anonymous returns a client with no session, for public pages.
func (m *Manager) Anonymous() *apiclient.Client {
	return apiclient.New(m.backendURL, apiclient.WithHTTPClient(m.httpClient))
}
