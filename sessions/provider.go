package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/token"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Authenticator performs the network side of login, passcode verification,
// refresh, logout and profile lookup.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*Session, *users.User, error)
	VerifyOTP(ctx context.Context, session *Session, code string) (*Session, error)
	Refresh(ctx context.Context, session *Session) (*Session, error)
	Logout(ctx context.Context, session *Session) error
	Profile(ctx context.Context, session *Session) (*users.User, error)
}

// Provider owns the AuthState. It is created once at start, hydrated once from its
// Store, and afterwards changed only by Login, VerifyOTP, Refresh and Logout. Each
// change replaces the whole state; readers get a snapshot.
type Provider struct {
	auth    Authenticator
	store   Store
	nowFunc func() time.Time

	mu    sync.RWMutex
	state AuthState

	hydrateOnce sync.Once
	hydrateErr  error
	ready       chan struct{}
}

var _ oauth2.TokenSource = (*Provider)(nil)

type ProviderOption func(*Provider)

func WithProviderNowFunc(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.nowFunc = now
	}
}

func NewProvider(auth Authenticator, store Store, options ...ProviderOption) *Provider {
	p := &Provider{
		auth:  auth,
		store: store,
		state: LoadingState(),
		ready: make(chan struct{}),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.store == nil {
		p.store = NewMemoryStore(nil)
	}
	if p.nowFunc == nil {
		p.nowFunc = time.Now
	}
	return p
}

// State returns a snapshot of the current auth state.
func (p *Provider) State() AuthState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Ready is closed once hydration has finished.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// Hydrate restores the stored session. It runs once; later calls return the first result.
// A session the server rejects is cleared from the store and leaves the provider
// logged out. Any other refresh failure keeps the stored session, which then reads
// as expired until a later refresh succeeds.
func (p *Provider) Hydrate(ctx context.Context) error {
	p.hydrateOnce.Do(func() {
		defer close(p.ready)
		state, err := p.restore(ctx)
		p.hydrateErr = err
		p.setState(state)
	})
	return p.hydrateErr
}

// HydrateAsync starts Hydrate in the background and returns Ready.
func (p *Provider) HydrateAsync(ctx context.Context) <-chan struct{} {
	go func() {
		if err := p.Hydrate(ctx); err != nil {
			log.Warn().Err(err).Msg("session hydration failed")
		}
	}()
	return p.ready
}

func (p *Provider) restore(ctx context.Context) (AuthState, error) {
	session, err := p.store.Load(ctx)
	if err != nil {
		return AuthState{}, errors.Wrapf(err, "Provider.restore Load")
	}
	if session == nil {
		return AuthState{}, nil
	}

	if !session.HasValidToken(p.nowFunc()) {
		if session.RefreshToken == "" {
			_ = p.store.Clear(ctx)
			return AuthState{}, nil
		}
		refreshed, err := p.auth.Refresh(ctx, session)
		if err != nil {
			if !isRejection(err) {
				// Keep the refresh token for the next attempt; the state reads as expired
				return AuthState{Session: session}, errors.Wrapf(err, "Provider.restore Refresh")
			}
			if clearErr := p.store.Clear(ctx); clearErr != nil {
				log.Warn().Err(clearErr).Msg("failed to clear rejected session")
			}
			return AuthState{}, errors.Wrapf(err, "Provider.restore Refresh")
		}
		session = refreshed
		if err := p.store.Save(ctx, session); err != nil {
			return AuthState{}, errors.Wrapf(err, "Provider.restore Save")
		}
	}

	user, err := p.auth.Profile(ctx, session)
	if err != nil {
		// Keep the session so guards can still route to the passcode step
		log.Debug().Err(err).Str("username", session.Username).Msg("profile lookup failed during hydration")
		return AuthState{Session: session}, nil
	}
	return AuthState{Session: session, User: user}, nil
}

// isRejection reports whether err means the server refused the session, as
// opposed to the server being unreachable or failing.
func isRejection(err error) bool {
	for _, target := range []error{
		errors.ErrInvalidRefreshToken,
		errors.ErrNotAuthenticated,
		errors.ErrTokenExpired,
		errors.ErrInvalidToken,
		errors.ErrSessionNotFound,
		errors.ErrSessionExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ensureHydrated waits for a running hydration, or marks the provider hydrated
// with no session if hydration never started.
func (p *Provider) ensureHydrated() {
	p.hydrateOnce.Do(func() {
		p.setState(AuthState{})
		close(p.ready)
	})
}

// Login authenticates and replaces the state with the new session.
func (p *Provider) Login(ctx context.Context, username, password string) (AuthState, error) {
	p.ensureHydrated()

	session, user, err := p.auth.Login(ctx, username, password)
	if err != nil {
		return p.State(), errors.Wrapf(err, "Provider.Login")
	}
	return p.replace(ctx, session, user)
}

// VerifyOTP completes the passcode step for the current session.
func (p *Provider) VerifyOTP(ctx context.Context, code string) (AuthState, error) {
	p.ensureHydrated()

	current := p.State()
	if current.Session == nil {
		return current, errors.ErrNotAuthenticated
	}
	if !current.Session.RequiresOTP() {
		return current, errors.ErrOTPNotRequired
	}

	session, err := p.auth.VerifyOTP(ctx, current.Session, code)
	if err != nil {
		return current, errors.Wrapf(err, "Provider.VerifyOTP")
	}

	user := current.User
	if user == nil {
		if user, err = p.auth.Profile(ctx, session); err != nil {
			return current, errors.Wrapf(err, "Provider.VerifyOTP Profile")
		}
	}
	return p.replace(ctx, session, user)
}

// Refresh swaps the session's tokens for new ones.
func (p *Provider) Refresh(ctx context.Context) (AuthState, error) {
	p.ensureHydrated()

	current := p.State()
	if current.Session == nil {
		return current, errors.ErrNotAuthenticated
	}

	session, err := p.auth.Refresh(ctx, current.Session)
	if err != nil {
		return current, errors.Wrapf(err, "Provider.Refresh")
	}
	return p.replace(ctx, session, current.User)
}

// Logout clears the state and the store. The remote logout is best effort.
func (p *Provider) Logout(ctx context.Context) error {
	p.ensureHydrated()

	current := p.State()
	if current.Session != nil {
		if err := p.auth.Logout(ctx, current.Session); err != nil {
			log.Warn().Err(err).Str("username", current.Session.Username).Msg("remote logout failed")
		}
	}

	p.setState(AuthState{})
	if err := p.store.Clear(ctx); err != nil {
		return errors.Wrapf(err, "Provider.Logout Clear")
	}
	return nil
}

// Token implements oauth2.TokenSource with the current access token.
func (p *Provider) Token() (*oauth2.Token, error) {
	state := p.State()
	if !state.IsAuthenticatedAt(p.nowFunc()) {
		return nil, errors.ErrNotAuthenticated
	}

	tok := &oauth2.Token{
		AccessToken: state.Session.AccessToken,
		TokenType:   "Bearer",
	}
	if exp, ok := token.ExpiresAt(state.Session.AccessToken); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

func (p *Provider) replace(ctx context.Context, session *Session, user *users.User) (AuthState, error) {
	state := AuthState{Session: session, User: user}
	p.setState(state)
	if err := p.store.Save(ctx, session); err != nil {
		return state, errors.Wrapf(err, "Provider.replace Save")
	}
	return state, nil
}

func (p *Provider) setState(state AuthState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}
