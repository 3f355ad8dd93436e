package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"league-console/internal/model"
)

const (
	PathTenants = "/tenants"
	PathLeagues = "/leagues"
	PathTeams   = "/teams"
	PathPlayers = "/players"
	PathSeasons = "/seasons"
	PathGames   = "/games"
	PathPosts   = "/posts"
)

func LeaguePath(leagueID string) string {
	return PathLeagues + "/" + url.PathEscape(leagueID)
}

func StandingsPath(leagueID string) string {
	return LeaguePath(leagueID) + "/standings"
}

type ListOptions struct {
	Page    int
	Limit   int
	Filters url.Values
}

func (o ListOptions) values() url.Values {
	values := url.Values{}
	for key, vals := range o.Filters {
		for _, v := range vals {
			if v != "" {
				values.Add(key, v)
			}
		}
	}
	if o.Page > 0 {
		values.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		values.Set("limit", strconv.Itoa(o.Limit))
	}

	return values
}

// List fetches one page of a paginated collection.
func List[T any](ctx context.Context, c *Client, path string, opts ListOptions) (*model.Page[T], error) {
	var out model.Page[T]
	req := &request{method: http.MethodGet, path: path, query: opts.values()}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []T{}
	}

	return &out, nil
}

func Get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var out T
	if err := c.do(ctx, &request{method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func Create[T any](ctx context.Context, c *Client, path string, payload any) (*T, error) {
	req, err := newRequest(http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	var out T
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
