// Package guard decides whether an auth state may see protected content.
//
// Evaluate is pure: it reads an already hydrated sessions.AuthState and returns a
// Decision. Acting on the decision (rendering or redirecting) is the caller's job.
package guard

import (
	"time"

	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/craftyxhub/craftyx-portal/users"
)

const (
	DefaultLoginPath   = "/login"
	DefaultOTPPath     = "/otp"
	DefaultLandingPath = "/dashboard"
)

// Kind tags a Decision.
type Kind int

const (
	Pending Kind = iota
	Authorized
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Authorized:
		return "authorized"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// State is the guard state a decision was reached in.
type State string

const (
	StateLoading         State = "LOADING"
	StateAuthorized      State = "AUTHORIZED"
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateOTPRequired     State = "OTP_REQUIRED"
	StateUnauthorized    State = "UNAUTHORIZED"
)

// Decision is the guard's verdict. Path and From are set only for Redirect.
// From is the originating location to return to after login or the passcode step.
type Decision struct {
	Kind  Kind
	State State
	Path  string
	From  string
}

func (d Decision) IsAuthorized() bool {
	return d.Kind == Authorized
}

// Guard holds the routing configuration for one protected route.
// An empty MinRole means any authenticated session is enough.
type Guard struct {
	MinRole     users.Role
	LoginPath   string
	OTPPath     string
	LandingPath string
	Now         func() time.Time
}

type Option func(*Guard)

func WithLoginPath(path string) Option {
	return func(g *Guard) {
		g.LoginPath = path
	}
}

func WithOTPPath(path string) Option {
	return func(g *Guard) {
		g.OTPPath = path
	}
}

func WithLandingPath(path string) Option {
	return func(g *Guard) {
		g.LandingPath = path
	}
}

func WithNow(now func() time.Time) Option {
	return func(g *Guard) {
		g.Now = now
	}
}

// RequireAuth guards content that any authenticated, passcode-verified session may see.
func RequireAuth(options ...Option) Guard {
	return newGuard("", options...)
}

// RequireRole additionally requires the user's role to be at least role.
func RequireRole(role users.Role, options ...Option) Guard {
	return newGuard(role, options...)
}

func newGuard(role users.Role, options ...Option) Guard {
	g := Guard{
		MinRole:     role,
		LoginPath:   DefaultLoginPath,
		OTPPath:     DefaultOTPPath,
		LandingPath: DefaultLandingPath,
		Now:         time.Now,
	}
	for _, opt := range options {
		opt(&g)
	}
	return g
}

// Evaluate applies, in order: loading, authentication, passcode step, role.
// from is the location being guarded.
func (g Guard) Evaluate(state sessions.AuthState, from string) Decision {
	if state.Loading {
		return Decision{Kind: Pending, State: StateLoading}
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if !state.IsAuthenticatedAt(now()) {
		return Decision{Kind: Redirect, State: StateUnauthenticated, Path: orDefault(g.LoginPath, DefaultLoginPath), From: from}
	}

	if state.Session.RequiresOTP() {
		return Decision{Kind: Redirect, State: StateOTPRequired, Path: orDefault(g.OTPPath, DefaultOTPPath), From: from}
	}

	if g.MinRole != "" && !state.User.HasRole(g.MinRole) {
		return Decision{Kind: Redirect, State: StateUnauthorized, Path: orDefault(g.LandingPath, DefaultLandingPath)}
	}

	return Decision{Kind: Authorized, State: StateAuthorized}
}

func orDefault(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}
