// Package session owns who is signed in to the console and with which
// credentials. Every token change goes through Store.SetTokens, which keeps
// the in-memory state, the API client's Authorization header, the durable
// record and the browser cookies in step.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"league-console/internal/apiclient"
	"league-console/internal/event"
	"league-console/internal/model"
)

const defaultLogoutTimeout = 5 * time.Second

type StoreConfig struct {
	Persister     Persister
	Cookies       CookieMirror
	Bus           event.Bus
	LogoutTimeout time.Duration
}

type Store struct {
	id            string
	client        *apiclient.Client
	persist       Persister
	cookies       CookieMirror
	bus           event.Bus
	logoutTimeout time.Duration

	mu    sync.Mutex
	state model.Session
}

// NewStore creates an empty store for session id and binds client to it, so
// the client's refresh interceptor writes back through this store.
func NewStore(id string, client *apiclient.Client, cfg StoreConfig) *Store {
	if cfg.LogoutTimeout <= 0 {
		cfg.LogoutTimeout = defaultLogoutTimeout
	}

	s := &Store{
		id:            id,
		client:        client,
		persist:       cfg.Persister,
		cookies:       cfg.Cookies,
		bus:           cfg.Bus,
		logoutTimeout: cfg.LogoutTimeout,
	}
	client.Bind(clientHooks{store: s})

	return s
}

func (s *Store) ID() string {
	return s.id
}

func (s *Store) Client() *apiclient.Client {
	return s.client
}

func (s *Store) Snapshot() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User.Clone()
}

func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Tokens == nil {
		return ""
	}
	return s.state.Tokens.RefreshToken
}

// Rehydrate restores the persisted session and re-attaches its access token
// to the client. It must run before the store issues any request.
func (s *Store) Rehydrate(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	stored, err := s.persist.Load(ctx, s.id)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rehydrate session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = stored.Clone()
	if s.state.Tokens != nil {
		s.client.SetAuthToken(s.state.Tokens.AccessToken)
	} else {
		s.client.SetAuthToken("")
	}

	return nil
}

func (s *Store) Login(ctx context.Context, identifier string, password string, scopeCode string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return fmt.Errorf("%w: username or email and password are required", model.ErrInvalidCredentials)
	}

	resp, err := s.client.Login(ctx, model.LoginRequest{
		UsernameOrEmail: identifier,
		Password:        password,
		LeagueCode:      strings.TrimSpace(scopeCode),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state.User = resp.User.Clone()
	err = s.setTokensLocked(ctx, &model.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	user := s.state.User.Clone()
	s.mu.Unlock()

	if err != nil {
		slog.Warn("session not persisted after login", "session_id", s.id, "error", err)
	}

	if user == nil {
		s.FetchUser(ctx)
		user = s.User()
	}

	s.publish(event.TypeSessionLogin, user)
	return nil
}

// Logout ends the session. The backend call is best effort; the local clear
// always happens, so Logout is safe to call repeatedly.
func (s *Store) Logout(ctx context.Context) {
	s.logout(ctx, event.TypeSessionLogout)
}

func (s *Store) logout(ctx context.Context, reason event.Type) {
	s.mu.Lock()
	var refreshToken string
	hadTokens := s.state.Tokens != nil
	if hadTokens {
		refreshToken = s.state.Tokens.RefreshToken
	}
	hadSession := !s.state.Empty()
	user := s.state.User.Clone()
	s.mu.Unlock()

	if hadTokens {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
		if err := s.client.Logout(callCtx, refreshToken); err != nil {
			slog.Warn("backend logout failed", "session_id", s.id, "error", err)
		}
		cancel()
	}

	s.mu.Lock()
	s.state.User = nil
	err := s.setTokensLocked(ctx, nil)
	s.mu.Unlock()

	if err != nil {
		slog.Warn("failed to clear persisted session", "session_id", s.id, "error", err)
	}

	if hadSession {
		s.publish(reason, user)
	}
}

// FetchUser reloads the profile from the backend. A 401 ends the session;
// any other failure is logged and the current profile is kept.
func (s *Store) FetchUser(ctx context.Context) {
	if !s.Snapshot().Authenticated() {
		return
	}

	user, err := s.client.Me(ctx)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			slog.Info("session rejected by backend", "session_id", s.id)
			s.logout(ctx, event.TypeSessionExpired)
			return
		}
		slog.Warn("fetch user failed", "session_id", s.id, "error", err)
		return
	}

	s.mu.Lock()
	if s.state.Tokens == nil {
		s.mu.Unlock()
		return
	}
	s.state.User = user.Clone()
	syncErr := s.syncLocked(ctx)
	s.mu.Unlock()

	if syncErr != nil {
		slog.Warn("session not persisted after profile fetch", "session_id", s.id, "error", syncErr)
	}

	s.publish(event.TypeSessionUserFetched, user)
}

// adoptRotated takes over a token pair another request for this session
// already rotated to. It reports false when the durable record still holds
// stale, or holds nothing usable.
func (s *Store) adoptRotated(ctx context.Context, stale string) (*model.TokenPair, bool) {
	if s.persist == nil {
		return nil, false
	}

	stored, err := s.persist.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, model.ErrSessionNotFound) {
			slog.Warn("reload session failed", "session_id", s.id, "error", err)
		}
		return nil, false
	}

	rotated := stored.Tokens
	if rotated == nil || rotated.AccessToken == "" || rotated.RefreshToken == "" || rotated.RefreshToken == stale {
		return nil, false
	}

	s.mu.Lock()
	if stored.User != nil {
		s.state.User = stored.User.Clone()
	}
	err = s.setTokensLocked(ctx, rotated)
	tokens := s.state.Tokens.Clone()
	s.mu.Unlock()

	if err != nil {
		slog.Warn("session not persisted after adopting rotated tokens", "session_id", s.id, "error", err)
	}

	slog.Debug("adopted tokens rotated by another request", "session_id", s.id)
	return tokens, true
}

// SetTokens is the only way tokens change. Passing nil clears them.
func (s *Store) SetTokens(ctx context.Context, tokens *model.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTokensLocked(ctx, tokens)
}

func (s *Store) setTokensLocked(ctx context.Context, tokens *model.TokenPair) error {
	if tokens != nil && tokens.AccessToken == "" {
		tokens = nil
	}

	s.state.Tokens = tokens.Clone()
	if s.state.Tokens != nil {
		s.client.SetAuthToken(s.state.Tokens.AccessToken)
	} else {
		s.client.SetAuthToken("")
	}

	return s.syncLocked(ctx)
}

// syncLocked writes both caches of the session, the cookie mirror and the
// durable record, from the same state.
func (s *Store) syncLocked(ctx context.Context) error {
	if s.cookies != nil {
		if s.state.Tokens == nil {
			s.cookies.Clear()
		} else {
			s.cookies.Mirror(s.state.Tokens.AccessToken, s.state.User.PrimaryRole())
		}
	}

	if s.persist == nil {
		return nil
	}

	if s.state.Tokens == nil {
		if err := s.persist.Delete(ctx, s.id); err != nil {
			return fmt.Errorf("delete session %s: %w", s.id, err)
		}
		return nil
	}

	if err := s.persist.Save(ctx, s.id, s.state.Clone()); err != nil {
		return fmt.Errorf("save session %s: %w", s.id, err)
	}

	return nil
}

func (s *Store) publish(typ event.Type, user *model.User) {
	if s.bus == nil {
		return
	}

	var userID string
	var role model.Role
	if user != nil {
		userID = user.ID
		role = user.PrimaryRole()
	}

	s.bus.Publish(event.New(typ, s.id, userID, string(role)))
}

// clientHooks is the store as seen by the API client's refresh interceptor.
type clientHooks struct {
	store *Store
}

func (h clientHooks) RefreshToken() string {
	return h.store.RefreshToken()
}

func (h clientHooks) SetTokens(ctx context.Context, tokens *model.TokenPair) error {
	err := h.store.SetTokens(ctx, tokens)
	h.store.publish(event.TypeSessionRefreshed, h.store.User())
	return err
}

func (h clientHooks) AdoptRotated(ctx context.Context, stale string) (*model.TokenPair, bool) {
	return h.store.adoptRotated(ctx, stale)
}

func (h clientHooks) Logout(ctx context.Context) {
	h.store.logout(ctx, event.TypeSessionExpired)
}
