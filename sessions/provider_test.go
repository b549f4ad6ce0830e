package sessions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func jwtExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(d).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

// fakeAuthenticator records calls and returns canned sessions.
type fakeAuthenticator struct {
	t *testing.T

	mu          sync.Mutex
	user        *users.User
	otpRequired bool
	otpCode     string
	loginErr    error
	refreshErr  error
	profileErr  error
	block       chan struct{}
	calls       []string
}

func (f *fakeAuthenticator) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAuthenticator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAuthenticator) Login(_ context.Context, username, password string) (*sessions.Session, *users.User, error) {
	f.record("login")
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	flag := sessions.OTPNotRequired
	if f.otpRequired {
		flag = sessions.OTPRequired
	}
	return &sessions.Session{
		Username:     username,
		AccessToken:  jwtExpiringIn(f.t, time.Hour),
		RefreshToken: "refresh-1",
		OTPRequired:  flag,
	}, f.user, nil
}

func (f *fakeAuthenticator) VerifyOTP(_ context.Context, session *sessions.Session, code string) (*sessions.Session, error) {
	f.record("otp")
	if code != f.otpCode {
		return nil, errors.ErrOTPInvalid
	}
	next := *session
	next.OTPRequired = sessions.OTPNotRequired
	return &next, nil
}

func (f *fakeAuthenticator) Refresh(_ context.Context, session *sessions.Session) (*sessions.Session, error) {
	f.record("refresh")
	if f.block != nil {
		<-f.block
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	next := *session
	next.AccessToken = jwtExpiringIn(f.t, 2*time.Hour)
	next.RefreshToken = "refresh-2"
	return &next, nil
}

func (f *fakeAuthenticator) Logout(context.Context, *sessions.Session) error {
	f.record("logout")
	return nil
}

func (f *fakeAuthenticator) Profile(context.Context, *sessions.Session) (*users.User, error) {
	f.record("profile")
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.user, nil
}

func newFake(t *testing.T) *fakeAuthenticator {
	return &fakeAuthenticator{
		t:       t,
		user:    &users.User{ID: "user-1", Name: "jane", Role: users.RoleUser},
		otpCode: "123456",
	}
}

func TestProvider_StartsLoading(t *testing.T) {
	p := sessions.NewProvider(newFake(t), nil)
	state := p.State()
	require.True(t, state.Loading)
	require.False(t, state.IsAuthenticated())
}

func TestProvider_Hydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		p := sessions.NewProvider(newFake(t), sessions.NewMemoryStore(nil))
		require.NoError(t, p.Hydrate(ctx))
		state := p.State()
		require.False(t, state.Loading)
		require.Nil(t, state.Session)
		require.False(t, state.IsAuthenticated())
	})

	t.Run("valid stored session", func(t *testing.T) {
		fake := newFake(t)
		store := sessions.NewMemoryStore(&sessions.Session{Username: "jane", AccessToken: jwtExpiringIn(t, time.Hour)})
		p := sessions.NewProvider(fake, store)
		require.NoError(t, p.Hydrate(ctx))

		state := p.State()
		require.True(t, state.IsAuthenticated())
		require.Equal(t, users.RoleUser, state.Role())
		require.Equal(t, []string{"profile"}, fake.Calls())
	})

	t.Run("expired session is refreshed", func(t *testing.T) {
		fake := newFake(t)
		store := sessions.NewMemoryStore(&sessions.Session{
			Username:     "jane",
			AccessToken:  jwtExpiringIn(t, -time.Minute),
			RefreshToken: "refresh-1",
		})
		p := sessions.NewProvider(fake, store)
		require.NoError(t, p.Hydrate(ctx))

		require.True(t, p.State().IsAuthenticated())
		stored, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "refresh-2", stored.RefreshToken)
	})

	t.Run("expired session without refresh token is dropped", func(t *testing.T) {
		store := sessions.NewMemoryStore(&sessions.Session{Username: "jane", AccessToken: jwtExpiringIn(t, -time.Minute)})
		p := sessions.NewProvider(newFake(t), store)
		require.NoError(t, p.Hydrate(ctx))

		require.False(t, p.State().IsAuthenticated())
		stored, err := store.Load(ctx)
		require.NoError(t, err)
		require.Nil(t, stored)
	})

	t.Run("failed refresh leaves provider logged out", func(t *testing.T) {
		fake := newFake(t)
		fake.refreshErr = errors.ErrInvalidRefreshToken
		store := sessions.NewMemoryStore(&sessions.Session{AccessToken: "garbage", RefreshToken: "refresh-1"})
		p := sessions.NewProvider(fake, store)

		err := p.Hydrate(ctx)
		require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
		state := p.State()
		require.False(t, state.Loading)
		require.False(t, state.IsAuthenticated())
		require.Nil(t, state.Session)

		stored, err := store.Load(ctx)
		require.NoError(t, err)
		require.Nil(t, stored, "rejected session is forgotten")
	})

	t.Run("unreachable server keeps the stored session", func(t *testing.T) {
		fake := newFake(t)
		fake.refreshErr = errors.Wrapf(errors.ErrUpstream, "dial tcp 127.0.0.1:1: connection refused")
		saved := &sessions.Session{Username: "jane", AccessToken: jwtExpiringIn(t, -time.Minute), RefreshToken: "refresh-1"}
		store := sessions.NewMemoryStore(saved)
		p := sessions.NewProvider(fake, store)

		err := p.Hydrate(ctx)
		require.ErrorIs(t, err, errors.ErrUpstream)
		state := p.State()
		require.False(t, state.Loading)
		require.False(t, state.IsAuthenticated())
		require.NotNil(t, state.Session)
		require.Equal(t, "refresh-1", state.Session.RefreshToken)

		stored, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.Equal(t, "refresh-1", stored.RefreshToken)

		// Once the server is back the kept refresh token works
		fake.refreshErr = nil
		refreshed, err := p.Refresh(ctx)
		require.NoError(t, err)
		require.True(t, refreshed.IsAuthenticated())
	})

	t.Run("runs once", func(t *testing.T) {
		fake := newFake(t)
		store := sessions.NewMemoryStore(&sessions.Session{AccessToken: jwtExpiringIn(t, time.Hour)})
		p := sessions.NewProvider(fake, store)
		require.NoError(t, p.Hydrate(ctx))
		require.NoError(t, p.Hydrate(ctx))
		require.Len(t, fake.Calls(), 1)
	})
}

func TestProvider_HydrateAsync(t *testing.T) {
	fake := newFake(t)
	fake.block = make(chan struct{})
	store := sessions.NewMemoryStore(&sessions.Session{AccessToken: jwtExpiringIn(t, -time.Minute), RefreshToken: "refresh-1"})
	p := sessions.NewProvider(fake, store)

	ready := p.HydrateAsync(context.Background())
	require.True(t, p.State().Loading)

	close(fake.block)
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("hydration did not finish")
	}
	require.False(t, p.State().Loading)
	require.True(t, p.State().IsAuthenticated())
}

func TestProvider_LoginWaitsForHydration(t *testing.T) {
	fake := newFake(t)
	fake.block = make(chan struct{})
	store := sessions.NewMemoryStore(&sessions.Session{AccessToken: jwtExpiringIn(t, -time.Minute), RefreshToken: "refresh-1"})
	p := sessions.NewProvider(fake, store)
	ready := p.HydrateAsync(context.Background())

	done := make(chan sessions.AuthState)
	go func() {
		state, _ := p.Login(context.Background(), "jane", "pw")
		done <- state
	}()

	close(fake.block)
	<-ready
	state := <-done
	require.Equal(t, "refresh-1", state.Session.RefreshToken)
	calls := fake.Calls()
	require.Equal(t, "login", calls[len(calls)-1])
}

func TestProvider_LoginLogout(t *testing.T) {
	ctx := context.Background()
	fake := newFake(t)
	store := sessions.NewMemoryStore(nil)
	p := sessions.NewProvider(fake, store)

	state, err := p.Login(ctx, "jane", "pw")
	require.NoError(t, err)
	require.False(t, state.Loading)
	require.True(t, state.IsAuthenticated())
	require.Equal(t, sessions.OTPNotRequired, state.Session.OTPRequired)

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, state.Session.AccessToken, stored.AccessToken)

	tok, err := p.Token()
	require.NoError(t, err)
	require.Equal(t, state.Session.AccessToken, tok.AccessToken)
	require.False(t, tok.Expiry.IsZero())

	require.NoError(t, p.Logout(ctx))
	require.False(t, p.State().IsAuthenticated())
	require.Nil(t, p.State().Session)
	stored, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, stored)

	_, err = p.Token()
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestProvider_LoginFailureKeepsState(t *testing.T) {
	fake := newFake(t)
	fake.loginErr = errors.ErrInvalidCredentials
	p := sessions.NewProvider(fake, nil)

	state, err := p.Login(context.Background(), "jane", "wrong")
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	require.False(t, state.IsAuthenticated())
	require.False(t, state.Loading)
}

func TestProvider_VerifyOTP(t *testing.T) {
	ctx := context.Background()
	fake := newFake(t)
	fake.otpRequired = true
	p := sessions.NewProvider(fake, nil)

	_, err := p.VerifyOTP(ctx, "123456")
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)

	state, err := p.Login(ctx, "jane", "pw")
	require.NoError(t, err)
	require.True(t, state.Session.RequiresOTP())

	_, err = p.VerifyOTP(ctx, "000000")
	require.ErrorIs(t, err, errors.ErrOTPInvalid)
	require.True(t, p.State().Session.RequiresOTP())

	state, err = p.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	require.False(t, state.Session.RequiresOTP())

	_, err = p.VerifyOTP(ctx, "123456")
	require.ErrorIs(t, err, errors.ErrOTPNotRequired)
}

func TestProvider_Refresh(t *testing.T) {
	ctx := context.Background()
	p := sessions.NewProvider(newFake(t), nil)

	_, err := p.Refresh(ctx)
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)

	before, err := p.Login(ctx, "jane", "pw")
	require.NoError(t, err)

	after, err := p.Refresh(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before.Session.AccessToken, after.Session.AccessToken)
	require.Equal(t, "refresh-2", after.Session.RefreshToken)
	require.Same(t, before.User, after.User)
}
