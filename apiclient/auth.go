package apiclient

import (
	"context"
	"errors"
	"net/http"

	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
	"github.com/jrsteele09/mcc-client/users"
)

const (
	RouteSignup  = "/auth/signup"
	RouteLogin   = "/auth/login"
	RouteMe      = "/auth/me"
	RouteLogout  = "/auth/logout"
	RouteRefresh = routeRefresh
)

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User        users.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

var errNoAccessToken = errors.New("server response carried no access token")

// Signup registers a new account. Credential exchanges never refresh.
func (c *Client) Signup(ctx context.Context, registration users.Registration) (*AuthResponse, error) {
	return c.exchange(ctx, RouteSignup, registration.Normalize())
}

// Login exchanges email and password for an access token.
func (c *Client) Login(ctx context.Context, credentials users.Credentials) (*AuthResponse, error) {
	return c.exchange(ctx, RouteLogin, credentials.Normalize())
}

func (c *Client) exchange(ctx context.Context, route string, body any) (*AuthResponse, error) {
	payload, err := c.Request(ctx, http.MethodPost, route, body, Credential)
	if err != nil {
		return nil, err
	}
	resp, err := Decode[AuthResponse](payload)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, mccerrors.Wrapf(errNoAccessToken, "%s", route)
	}
	return &resp, nil
}

// Me verifies the current token and returns the signed in user.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	payload, err := c.Get(ctx, RouteMe)
	if err != nil {
		return nil, err
	}
	u, err := Decode[users.User](payload)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout tells the backend to revoke the refresh cookie. A dead session never
// triggers a refresh or a second invalidation from here.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodPost, RouteLogout, struct{}{}, Credential)
	return err
}
