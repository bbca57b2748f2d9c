package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/digimall/admin-gateway/internal/domain/identity"
)

// Staff auth endpoints, relative to the API prefix
const (
	PathStaffLogin   = "staff/auth/login"
	PathStaffRefresh = "staff/auth/refresh-token"
	PathStaffLogout  = "staff/auth/logout"
)

// LoginResult is a successful staff login
type LoginResult struct {
	User   identity.StaffUser
	Tokens identity.TokenPair
}

// loginData accepts both the flat and the nested token layouts
type loginData struct {
	User   *identity.StaffUser `json:"user"`
	Staff  *identity.StaffUser `json:"staff"`
	Tokens *identity.TokenPair `json:"tokens"`
	identity.TokenPair
}

func (d loginData) tokens() identity.TokenPair {
	if d.Tokens != nil && d.Tokens.AccessToken != "" {
		return *d.Tokens
	}
	return d.TokenPair
}

func (d loginData) user() *identity.StaffUser {
	if d.User != nil {
		return d.User
	}
	return d.Staff
}

// Login exchanges staff credentials for a token pair
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var data loginData
	err := c.doJSON(ctx, call{
		method: http.MethodPost,
		path:   PathStaffLogin,
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &data)
	if err != nil {
		return nil, err
	}

	user := data.user()
	tokens := data.tokens()
	if user == nil || tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response lacks user or access token", ErrInvalidResponse)
	}

	return &LoginResult{User: *user, Tokens: tokens}, nil
}

// RefreshToken trades a refresh token for a new token pair
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
	var data loginData
	err := c.doJSON(ctx, call{
		method: http.MethodPost,
		path:   PathStaffRefresh,
		body:   map[string]string{"refreshToken": refreshToken},
	}, &data)
	if err != nil {
		return identity.TokenPair{}, err
	}

	tokens := data.tokens()
	if tokens.AccessToken == "" {
		return identity.TokenPair{}, fmt.Errorf("%w: refresh response lacks access token", ErrInvalidResponse)
	}
	return tokens, nil
}

// Logout invalidates the backend tokens held by id
func (c *Client) Logout(ctx context.Context, id identity.Identity, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = map[string]string{"refreshToken": refreshToken}
	}
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     PathStaffLogout,
		body:     body,
		identity: &id,
	}, nil)
}
