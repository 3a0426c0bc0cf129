package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/glintlabs/glint/internal/jsonx"
)

// Login exchanges credentials for a bearer token. The endpoint speaks the
// OAuth2 password flow, so the body is form-encoded rather than JSON.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	var resp TokenResponse
	if err := c.postForm(ctx, "/auth/login", form, &resp); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	return &resp, nil
}

// Logout invalidates the token server-side. Local credential cleanup is
// the caller's job and proceeds regardless of this call's outcome.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, "", nil, nil, false); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// CurrentUser fetches the account behind the configured token.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, "/auth/me", nil, &u); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	return &u, nil
}

// MyAgents lists the domain agents the account is allowed to query.
func (c *Client) MyAgents(ctx context.Context) ([]string, error) {
	var agents jsonx.StringList
	if err := c.getJSON(ctx, "/ai/agents/my", nil, &agents); err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	return agents, nil
}
