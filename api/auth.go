package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-docshare-client/gateway"
	dserrors "github.com/jrsteele09/go-docshare-client/internal/errors"
	"github.com/jrsteele09/go-docshare-client/token"
	"github.com/jrsteele09/go-docshare-client/token/refresh"
	"github.com/jrsteele09/go-docshare-client/users"
)

const (
	loginPath    = "/auth/login/"
	registerPath = "/auth/register/"
	refreshPath  = "/auth/refresh/"
	profilePath  = "/profile/"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// anonymous marks requests that must carry no bearer token and whose 401 is an answer.
func anonymous(ctx context.Context) context.Context {
	return gateway.WithToken(ctx, "")
}

// Login exchanges credentials for a token pair. Nothing is stored.
// A 400 or 401 answer wraps ErrInvalidCredentials together with the APIError.
func (c *Client) Login(ctx context.Context, username, password string) (token.Pair, error) {
	var resp tokenResponse
	err := c.doJSON(anonymous(ctx), "Login", http.MethodPost, loginPath, nil, credentials{username, password}, &resp)
	if err != nil {
		var apiErr *dserrors.APIError
		if dserrors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			return token.Pair{}, fmt.Errorf("[api Login] %w: %w", dserrors.ErrInvalidCredentials, apiErr)
		}
		return token.Pair{}, err
	}

	pair := token.Pair{Access: resp.Access, Refresh: resp.Refresh}
	if !pair.Complete() {
		return token.Pair{}, fmt.Errorf("[api Login] %w: token pair incomplete", dserrors.ErrMalformedResponse)
	}
	return pair, nil
}

// Register creates an account. It never logs the user in.
func (c *Client) Register(ctx context.Context, reg users.Registration) (*users.User, error) {
	var user users.User
	if err := c.doJSON(anonymous(ctx), "Register", http.MethodPost, registerPath, nil, reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshAccess trades a refresh token for a new access token. It sends no
// bearer token and is never itself refreshed, so it is safe on any client.
func (c *Client) RefreshAccess(ctx context.Context, refreshToken string) (refresh.Grant, error) {
	if refreshToken == "" {
		return refresh.Grant{}, fmt.Errorf("[api RefreshAccess] %w", dserrors.ErrNoRefreshToken)
	}

	var resp tokenResponse
	body := map[string]string{"refresh": refreshToken}
	if err := c.doJSON(anonymous(ctx), "RefreshAccess", http.MethodPost, refreshPath, nil, body, &resp); err != nil {
		return refresh.Grant{}, err
	}
	if resp.Access == "" {
		return refresh.Grant{}, fmt.Errorf("[api RefreshAccess] %w: no access token", dserrors.ErrMalformedResponse)
	}
	return refresh.Grant{Access: resp.Access, Refresh: resp.Refresh}, nil
}

// Profile fetches the current user profile.
func (c *Client) Profile(ctx context.Context) (*users.Profile, error) {
	var profile users.Profile
	if err := c.doJSON(ctx, "Profile", http.MethodGet, profilePath, nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile sends a partial update and returns the server representation.
func (c *Client) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.Profile, error) {
	var profile users.Profile
	if err := c.doJSON(ctx, "UpdateProfile", http.MethodPatch, profilePath, nil, update, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
