package lodestar

import (
	"context"
	"net/http"
)

// Me fetches the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe applies a partial update to the authenticated user's profile and
// returns the updated profile.
func (c *Client) UpdateMe(ctx context.Context, req UpdateUserRequest) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPut, "/users/me", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
