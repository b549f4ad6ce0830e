// Package authapi holds the JSON shapes exchanged on the /auth endpoints. The
// server writes them and apiclient reads them.
package authapi

import (
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/craftyxhub/craftyx-portal/users"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// OTPRequest is the body of POST /auth/otp. SessionID may instead come from the
// session cookie.
type OTPRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Code      string `json:"code" validate:"required,numeric"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	SessionID    string `json:"sessionId,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LogoutRequest is the body of POST /auth/logout.
type LogoutRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// SessionResponse is returned by login, passcode verification and refresh.
type SessionResponse struct {
	// SessionID identifies the server-side session. Browsers also receive it as a cookie.
	SessionID string `json:"sessionId" validate:"required"`

	Username string `json:"username" validate:"required"`

	// AccessToken is the bearer JWT. Its exp claim is authoritative.
	AccessToken string `json:"accessToken" validate:"required,jwt"`

	// RefreshToken is opaque and single use; every refresh returns a new one.
	RefreshToken string `json:"refreshToken,omitempty"`

	// OTPRequired is "1" until the passcode step succeeds.
	OTPRequired sessions.OTPFlag `json:"otpRequired" validate:"oneof=0 1"`

	// ExpiresIn is the access token lifetime in seconds. A hint only.
	ExpiresIn int `json:"expiresIn,omitempty" validate:"gte=0"`

	User *users.User `json:"user,omitempty" validate:"omitempty"`
}

func NewSessionResponse(session *sessions.Session, user *users.User, expiresIn int) SessionResponse {
	return SessionResponse{
		SessionID:    session.ID,
		Username:     session.Username,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		OTPRequired:  session.OTPRequired,
		ExpiresIn:    expiresIn,
		User:         user,
	}
}

// Session converts the response back into a client-held session.
func (r SessionResponse) Session() *sessions.Session {
	return &sessions.Session{
		ID:           r.SessionID,
		UserID:       userID(r.User),
		Username:     r.Username,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		OTPRequired:  r.OTPRequired,
	}
}

func userID(u *users.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
