package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"league-console/internal/model"
)

func (c *Client) Login(ctx context.Context, payload model.LoginRequest) (*model.LoginResponse, error) {
	req, err := newRequest(http.MethodPost, loginPath, payload)
	if err != nil {
		return nil, err
	}
	req.noRefresh = true

	var out model.LoginResponse
	if err := c.do(ctx, req, &out); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusBadRequest || statusErr.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %w", model.ErrInvalidCredentials, err)
		}
		return nil, err
	}

	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response has no access token", model.ErrUpstream)
	}

	return &out, nil
}

// Refresh exchanges a refresh token for a new pair. It never goes through
// the retry interceptor.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	req, err := newRequest(http.MethodPost, refreshPath, model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	req.noRefresh = true

	var out model.TokenPair
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}

	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response has no access token", model.ErrUpstream)
	}

	return &out, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	req, err := newRequest(http.MethodPost, logoutPath, model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	req.noRefresh = true

	return c.do(ctx, req, nil)
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, &request{method: http.MethodGet, path: mePath}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
