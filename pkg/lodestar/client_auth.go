package lodestar

import (
	"context"
	"net/http"
)

// Register creates a new account and returns its first token pair.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var tokens TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Login exchanges email and password for a token pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var tokens TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Refresh exchanges a refresh token for a fresh token pair. The response may
// omit refresh_token, in which case the caller should keep using the one it
// has.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	var tokens TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// RequestPasswordReset asks the server to email a reset token to the account.
// The server responds identically whether or not the address is registered.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/password/reset-request", passwordResetRequest{Email: email}, nil)
}

// ResetPassword sets a new password using a reset token from the email flow.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/password/reset", passwordResetConfirm{Token: token, NewPassword: newPassword}, nil)
}
