package lodestar

import "time"

// TokenResponse is the credential pair returned by the auth endpoints.
// RefreshToken may be absent on refresh responses when the server keeps the
// existing refresh token valid.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// User is the account profile returned by the user endpoints.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserSummary is the slice of the profile the session keeps: identity and
// display fields only, no server bookkeeping.
type UserSummary struct {
	ID         string
	Name       string
	Email      string
	AvatarURL  string
	IsActive   bool
	IsVerified bool
}

// Summary projects the wire profile into the session's view of it.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		AvatarURL:  u.AvatarURL,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
	}
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for signing in with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest carries a partial profile update. Nil fields are left
// unchanged on the server.
type UpdateUserRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
