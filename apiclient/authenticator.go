package apiclient

import (
	"context"
	"net/http"

	"github.com/craftyxhub/craftyx-portal/authapi"
	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/craftyxhub/craftyx-portal/users"
	"golang.org/x/oauth2"
)

var _ sessions.Authenticator = (*Client)(nil)

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, username, password string) (*sessions.Session, *users.User, error) {
	var resp authapi.SessionResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, "/auth/login", nil,
		authapi.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		if errors.Is(err, errors.ErrNotAuthenticated) {
			return nil, nil, errors.Wrapf(errors.ErrInvalidCredentials, "%s", err.Error())
		}
		return nil, nil, err
	}
	return resp.Session(), resp.User, nil
}

// VerifyOTP calls POST /auth/otp with the session's bearer token.
func (c *Client) VerifyOTP(ctx context.Context, session *sessions.Session, code string) (*sessions.Session, error) {
	var resp authapi.SessionResponse
	err := c.do(ctx, c.sessionClient(session), http.MethodPost, "/auth/otp", nil,
		authapi.OTPRequest{SessionID: session.ID, Code: code}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Session(), nil
}

// Refresh calls POST /auth/refresh. No bearer token is sent since the access
// token has usually expired by now.
func (c *Client) Refresh(ctx context.Context, session *sessions.Session) (*sessions.Session, error) {
	if session == nil || session.RefreshToken == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	var resp authapi.SessionResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, "/auth/refresh", nil,
		authapi.RefreshRequest{SessionID: session.ID, RefreshToken: session.RefreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Session(), nil
}

// Logout calls POST /auth/logout.
func (c *Client) Logout(ctx context.Context, session *sessions.Session) error {
	if session == nil {
		return errors.ErrNotAuthenticated
	}
	return c.do(ctx, c.sessionClient(session), http.MethodPost, "/auth/logout", nil,
		authapi.LogoutRequest{SessionID: session.ID}, nil)
}

// Profile calls GET /auth/me.
func (c *Client) Profile(ctx context.Context, session *sessions.Session) (*users.User, error) {
	var user users.User
	if err := c.do(ctx, c.sessionClient(session), http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) sessionClient(session *sessions.Session) *http.Client {
	if session == nil || session.AccessToken == "" {
		return c.httpClient
	}
	return bearerClient(c.httpClient, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: session.AccessToken,
		TokenType:   "Bearer",
	}))
}
