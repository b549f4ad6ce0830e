package sessions

import (
	"time"

	"github.com/craftyxhub/craftyx-portal/token"
	"github.com/craftyxhub/craftyx-portal/users"
)

// OTPFlag marks whether a session still has to pass the one-time passcode step.
type OTPFlag string

const (
	OTPNotRequired OTPFlag = "0"
	OTPRequired    OTPFlag = "1"
)

// Session is the client-held proof of authentication, created on login, replaced on
// refresh and cleared on logout. AccessToken is empty or a JWT with an exp claim.
type Session struct {
	ID           string    `json:"id,omitempty"`            // Server-side session identifier (cookie value)
	UserID       string    `json:"user_id,omitempty"`       // Owner
	Username     string    `json:"username"`                // Login name
	AccessToken  string    `json:"accessToken"`             // Bearer JWT
	RefreshToken string    `json:"refresh_token,omitempty"` // Opaque refresh token
	OTPRequired  OTPFlag   `json:"otpRequired"`             // "1" until the passcode step succeeds
	CreatedAt    time.Time `json:"created_at,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"` // Server-side session lifetime, not the token's

	OTPCodeHash  string    `json:"-"` // bcrypt hash of the pending passcode, server-side only
	OTPExpiresAt time.Time `json:"-"`
	OTPAttempts  int       `json:"-"` // Wrong passcodes entered so far
}

// RequiresOTP reports whether the passcode step is still pending.
func (s *Session) RequiresOTP() bool {
	return s != nil && s.OTPRequired == OTPRequired
}

// HasValidToken reports whether the access token is present and unexpired at now.
func (s *Session) HasValidToken(now time.Time) bool {
	return s != nil && !token.IsTokenExpiredAt(s.AccessToken, now)
}

// AuthState is the aggregate read by guards. IsAuthenticated is derived from the
// session's access token and cannot be set.
type AuthState struct {
	Session *Session
	User    *users.User
	Loading bool // true only while the initial session hydration is running
}

// LoadingState is the state before hydration completes.
func LoadingState() AuthState {
	return AuthState{Loading: true}
}

// IsAuthenticated is true iff the session has an access token that has not expired.
func (a AuthState) IsAuthenticated() bool {
	return a.IsAuthenticatedAt(time.Now())
}

func (a AuthState) IsAuthenticatedAt(now time.Time) bool {
	return a.Session.HasValidToken(now)
}

// Role returns the user's role, or "" when no user is known.
func (a AuthState) Role() users.Role {
	if a.User == nil {
		return ""
	}
	return a.User.Role
}
