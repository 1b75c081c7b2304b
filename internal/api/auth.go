package api

import (
	"context"
	"net/http"
)

// Register creates an account. The returned identity carries the token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for an identity carrying a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProfile returns the identity behind the current credential.
func (c *Client) GetProfile(ctx context.Context) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes name, email and optionally password.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodPut, "/auth/profile", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAllUsers returns the user directory. Admin only.
func (c *Client) GetAllUsers(ctx context.Context) ([]Identity, error) {
	var out []Identity
	if err := c.do(ctx, http.MethodGet, "/auth/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
