// Package apiclient talks to the league backend. It attaches the session's
// bearer token to every call and recovers once from an expired access token
// by refreshing it and replaying the request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"league-console/internal/model"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
	mePath      = "/auth/me"
)

// SessionHooks connects a client to the session that owns its credentials.
type SessionHooks interface {
	RefreshToken() string
	SetTokens(ctx context.Context, tokens *model.TokenPair) error
	// AdoptRotated re-reads the durable session. When it holds a refresh
	// token other than stale, another request already rotated the pair; the
	// session takes it over and returns it.
	AdoptRotated(ctx context.Context, stale string) (*model.TokenPair, bool)
	Logout(ctx context.Context)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRefreshGroup shares refresh calls between clients. Clients opened for
// the same browser session at the same time then spend a refresh token once.
func WithRefreshGroup(group *singleflight.Group) Option {
	return func(c *Client) {
		if group != nil {
			c.refreshGroup = group
		}
	}
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	refreshGroup *singleflight.Group

	mu        sync.RWMutex
	authToken string
	hooks     SessionHooks
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		refreshGroup: &singleflight.Group{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetAuthToken replaces the default Authorization header. An empty token
// removes it.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// Bind enables the refresh-and-retry interceptor for this client.
func (c *Client) Bind(hooks SessionHooks) {
	c.mu.Lock()
	c.hooks = hooks
	c.mu.Unlock()
}

func (c *Client) sessionHooks() SessionHooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hooks
}

type request struct {
	method    string
	path      string
	query     url.Values
	body      []byte
	noRefresh bool
	retried   bool
}

func newRequest(method string, path string, payload any) (*request, error) {
	req := &request{method: method, path: path}
	if payload == nil {
		return req, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
	}
	req.body = body

	return req, nil
}

func (c *Client) do(ctx context.Context, req *request, out any) error {
	resp, err := c.send(ctx, req, c.AuthToken())
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.canRefresh(req) {
		originalErr := newStatusError(req, resp)
		return c.refreshAndRetry(ctx, req, originalErr, out)
	}

	return decode(req, resp, out)
}

func (c *Client) canRefresh(req *request) bool {
	if req.noRefresh || req.retried {
		return false
	}

	return c.sessionHooks() != nil
}

func (c *Client) refreshAndRetry(ctx context.Context, req *request, originalErr error, out any) error {
	req.retried = true
	hooks := c.sessionHooks()
	// Session bookkeeping runs to completion even if the caller gives up.
	detached := context.WithoutCancel(ctx)

	stale := hooks.RefreshToken()
	if stale == "" {
		hooks.Logout(detached)
		return fmt.Errorf("%w: %w: %w", model.ErrSessionExpired, model.ErrNoRefreshToken, originalErr)
	}

	if rotated, ok := hooks.AdoptRotated(detached, stale); ok {
		resp, err := c.send(ctx, req, rotated.AccessToken)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return decode(req, resp, out)
		}
		discard(resp)
		stale = rotated.RefreshToken
	}

	tokens, err := c.refreshShared(detached, hooks, stale)
	if err != nil {
		rotated, ok := hooks.AdoptRotated(detached, stale)
		if !ok {
			slog.Warn("token refresh failed", "path", req.path, "error", err)
			hooks.Logout(detached)
			return fmt.Errorf("%w: %w", model.ErrSessionExpired, originalErr)
		}
		tokens = rotated
	}

	resp, err := c.send(ctx, req, tokens.AccessToken)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		retryErr := newStatusError(req, resp)
		hooks.Logout(detached)
		return fmt.Errorf("%w: %w", model.ErrSessionExpired, retryErr)
	}

	return decode(req, resp, out)
}

// refreshShared spends refreshToken at most once across concurrent callers.
// The caller that runs the refresh stores the new pair before the others are
// released, so a request that missed the shared call finds it persisted.
func (c *Client) refreshShared(ctx context.Context, hooks SessionHooks, refreshToken string) (*model.TokenPair, error) {
	led := false
	value, err, _ := c.refreshGroup.Do(refreshToken, func() (any, error) {
		led = true
		tokens, err := c.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if err := hooks.SetTokens(ctx, tokens); err != nil {
			slog.Warn("failed to persist refreshed tokens", "error", err)
		}
		return tokens, nil
	})
	if err != nil {
		return nil, err
	}

	tokens, ok := value.(*model.TokenPair)
	if !ok || tokens == nil {
		return nil, fmt.Errorf("%w: empty refresh result", model.ErrUpstream)
	}
	tokens = tokens.Clone()

	if !led {
		if err := hooks.SetTokens(ctx, tokens); err != nil {
			slog.Warn("failed to persist refreshed tokens", "error", err)
		}
	}

	return tokens, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (c *Client) send(ctx context.Context, req *request, token string) (*http.Response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req), body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", req.method, req.path, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", model.ErrUpstream, req.method, req.path, err)
	}

	return resp, nil
}

func (c *Client) endpoint(req *request) string {
	target := c.baseURL + "/" + strings.TrimLeft(req.path, "/")
	if len(req.query) == 0 {
		return target
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}

	return target + sep + req.query.Encode()
}

func decode(req *request, resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(req, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s %s: %w", model.ErrUpstream, req.method, req.path, err)
	}

	return nil
}
