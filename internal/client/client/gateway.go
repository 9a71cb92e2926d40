package client

import (
	"context"

	"github.com/dmitrijs2005/erpadmin/internal/client/models"
)

// TokenResponse is the body of a successful login or refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Gateway performs the session's network exchanges. Profile and
// ChangePassword are authenticated: the caller puts the bearer token into ctx
// with WithAccessToken.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context) (*models.Profile, error)
	ChangePassword(ctx context.Context, current, next, confirm string) error
	Ping(ctx context.Context) error
}

// Wire bodies.
type (
	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	ChangePasswordRequest struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}

	ErrorResponse struct {
		Detail string `json:"detail"`
	}
)
