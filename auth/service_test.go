package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/craftyxhub/craftyx-portal/auth"
	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/craftyxhub/craftyx-portal/token"
	"github.com/craftyxhub/craftyx-portal/token/refresh"
	"github.com/craftyxhub/craftyx-portal/users"
	fakeuserrepo "github.com/craftyxhub/craftyx-portal/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	secretStr    = "test-secret"
	issuer       = "com.testissuer"
	testPassword = "Password123"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSender struct {
	mu    sync.Mutex
	codes []string
	err   error // Returned from SendOTP when set
}

func (r *recordingSender) SendOTP(_ context.Context, _ *users.User, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
	return r.err
}

func (r *recordingSender) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recordingSender) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.codes) == 0 {
		return ""
	}
	return r.codes[len(r.codes)-1]
}

// testFixture holds all test dependencies
type testFixture struct {
	clock     *testClock
	sender    *recordingSender
	tokens    *token.Manager
	refreshes *refresh.Manager
	sessions  *sessions.InMemoryRepo
	service   *auth.Service
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	clock := &testClock{now: time.Now()}
	tokens := token.New(token.NewHMACSigner(secretStr),
		token.WithIssuer(issuer),
		token.WithAccessTokenExpiry(15*time.Minute),
		token.WithNowFunc(clock.Now),
	)
	refreshes := refresh.NewManager(refresh.NewInMemoryRepo(), 24*time.Hour, clock.Now)
	sessionRepo := sessions.NewInMemoryRepo()
	sender := &recordingSender{}

	service, err := auth.NewService(
		auth.Repos{Users: fakeuserrepo.NewFakeUserRepo(), Sessions: sessionRepo},
		tokens, refreshes,
		auth.WithNowTime(clock.Now),
		auth.WithOTPSender(sender),
	)
	require.NoError(t, err)

	return &testFixture{clock: clock, sender: sender, tokens: tokens, refreshes: refreshes, sessions: sessionRepo, service: service}
}

func (f *testFixture) register(t *testing.T, name string, role users.Role, otp bool) *users.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), name, name+"@example.com", testPassword, role, otp)
	require.NoError(t, err)
	return user
}

func TestNewService(t *testing.T) {
	_, err := auth.NewService(auth.Repos{}, nil, nil)
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		user := f.register(t, "alice", users.RoleUser, false)
		require.NotEmpty(t, user.ID)
		require.NotEqual(t, testPassword, user.PasswordHash)
		require.True(t, users.CheckPasswordHash(testPassword, user.PasswordHash))
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := f.service.Register(ctx, "alice", "", testPassword, users.RoleUser, false)
		require.ErrorIs(t, err, errors.ErrUserExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := f.service.Register(ctx, "bob", "", "short", users.RoleUser, false)
		require.ErrorIs(t, err, errors.ErrInvalidRequest)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.service.Register(ctx, "carol", "", testPassword, users.Role("guest"), false)
		require.ErrorIs(t, err, errors.ErrInvalidRequest)
	})
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", users.RoleModerator, false)

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := f.service.Login(ctx, "nobody", testPassword)
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.service.Login(ctx, "alice", "Wrong12345")
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	})

	t.Run("success without second factor", func(t *testing.T) {
		session, user, err := f.service.Login(ctx, "alice", testPassword)
		require.NoError(t, err)
		require.Equal(t, alice.ID, user.ID)
		require.Equal(t, "alice", session.Username)
		require.Equal(t, sessions.OTPNotRequired, session.OTPRequired)
		require.NotEmpty(t, session.ID)
		require.NotEmpty(t, session.RefreshToken)
		require.True(t, session.HasValidToken(f.clock.Now()))

		claims, err := f.tokens.Parse(session.AccessToken)
		require.NoError(t, err)
		require.Equal(t, alice.ID, claims.Subject)
		require.Equal(t, users.RoleModerator, claims.Role)

		profile, err := f.service.Profile(ctx, session)
		require.NoError(t, err)
		require.Equal(t, alice.ID, profile.ID)
	})

	t.Run("failed passcode delivery leaves no tokens behind", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "otto", users.RoleUser, true)
		f.sender.FailWith(errors.Wrapf(errors.ErrUpstream, "smtp down"))

		_, _, err := f.service.Login(ctx, "otto", testPassword)
		require.Error(t, err)

		// A leaked refresh token would still be in the repo for the sweep to find
		f.clock.Advance(25 * time.Hour)
		removed, err := f.refreshes.Sweep()
		require.NoError(t, err)
		require.Zero(t, removed)
	})
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("correct code clears the flag", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "dave", users.RoleUser, true)

		session, _, err := f.service.Login(ctx, "dave", testPassword)
		require.NoError(t, err)
		require.Equal(t, sessions.OTPRequired, session.OTPRequired)
		require.Empty(t, session.OTPCodeHash)

		code := f.sender.Last()
		require.Len(t, code, 6)

		_, err = f.service.VerifyOTP(ctx, session, wrongCode(code))
		require.ErrorIs(t, err, errors.ErrOTPInvalid)

		verified, err := f.service.VerifyOTP(ctx, session, code)
		require.NoError(t, err)
		require.Equal(t, sessions.OTPNotRequired, verified.OTPRequired)
		require.Equal(t, session.AccessToken, verified.AccessToken)

		_, err = f.service.VerifyOTP(ctx, verified, code)
		require.ErrorIs(t, err, errors.ErrOTPNotRequired)
	})

	t.Run("attempts are limited", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "fay", users.RoleUser, true)

		session, _, err := f.service.Login(ctx, "fay", testPassword)
		require.NoError(t, err)
		code := f.sender.Last()

		for i := 0; i < 4; i++ {
			_, err = f.service.VerifyOTP(ctx, session, wrongCode(code))
			require.ErrorIs(t, err, errors.ErrOTPInvalid)
		}
		_, err = f.sessions.Get(ctx, session.ID)
		require.NoError(t, err, "session survives until the limit")

		_, err = f.service.VerifyOTP(ctx, session, wrongCode(code))
		require.ErrorIs(t, err, errors.ErrOTPInvalid)

		_, err = f.service.VerifyOTP(ctx, session, code)
		require.ErrorIs(t, err, errors.ErrSessionNotFound, "the right code no longer helps")
		_, err = f.tokens.Parse(session.AccessToken)
		require.ErrorIs(t, err, errors.ErrInvalidToken)
		_, err = f.service.Refresh(ctx, session)
		require.Error(t, err)
	})

	t.Run("success resets the attempt count", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "gus", users.RoleUser, true)

		session, _, err := f.service.Login(ctx, "gus", testPassword)
		require.NoError(t, err)
		code := f.sender.Last()

		for i := 0; i < 4; i++ {
			_, err = f.service.VerifyOTP(ctx, session, wrongCode(code))
			require.ErrorIs(t, err, errors.ErrOTPInvalid)
		}
		_, err = f.service.VerifyOTP(ctx, session, code)
		require.NoError(t, err)

		stored, err := f.sessions.Get(ctx, session.ID)
		require.NoError(t, err)
		require.Zero(t, stored.OTPAttempts)
	})

	t.Run("expired code", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "erin", users.RoleUser, true)

		session, _, err := f.service.Login(ctx, "erin", testPassword)
		require.NoError(t, err)

		f.clock.Advance(6 * time.Minute)
		_, err = f.service.VerifyOTP(ctx, session, f.sender.Last())
		require.ErrorIs(t, err, errors.ErrOTPInvalid)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.VerifyOTP(ctx, &sessions.Session{ID: "missing"}, "123456")
		require.ErrorIs(t, err, errors.ErrSessionNotFound)
	})
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "frank", users.RoleUser, false)

	session, _, err := f.service.Login(ctx, "frank", testPassword)
	require.NoError(t, err)

	refreshed, err := f.service.Refresh(ctx, session)
	require.NoError(t, err)
	require.Equal(t, session.ID, refreshed.ID)
	require.NotEqual(t, session.AccessToken, refreshed.AccessToken)
	require.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)

	_, err = f.tokens.Parse(session.AccessToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken, "old access token is revoked")

	t.Run("old refresh token is rejected", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, session)
		require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
	})

	t.Run("expired session", func(t *testing.T) {
		f.clock.Advance(8 * 24 * time.Hour)
		_, err := f.service.Refresh(ctx, refreshed)
		require.ErrorIs(t, err, errors.ErrSessionExpired)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "gina", users.RoleUser, false)

	session, _, err := f.service.Login(ctx, "gina", testPassword)
	require.NoError(t, err)
	require.NotNil(t, f.service.Resolve(ctx, session.ID).Session)

	require.NoError(t, f.service.Logout(ctx, session))

	state := f.service.Resolve(ctx, session.ID)
	require.Nil(t, state.Session)
	require.False(t, state.IsAuthenticatedAt(f.clock.Now()))

	_, err = f.tokens.Parse(session.AccessToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	_, err = f.service.Refresh(ctx, session)
	require.ErrorIs(t, err, errors.ErrSessionNotFound)

	require.NoError(t, f.service.Logout(ctx, nil))
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "hank", users.RoleAdmin, false)

	session, _, err := f.service.Login(ctx, "hank", testPassword)
	require.NoError(t, err)

	t.Run("empty id", func(t *testing.T) {
		require.Nil(t, f.service.Resolve(ctx, "").Session)
	})

	t.Run("valid session", func(t *testing.T) {
		state := f.service.Resolve(ctx, session.ID)
		require.Equal(t, admin.ID, state.User.ID)
		require.Equal(t, users.RoleAdmin, state.Role())
		require.True(t, state.IsAuthenticatedAt(f.clock.Now()))
	})

	t.Run("expired access token keeps the session", func(t *testing.T) {
		f.clock.Advance(20 * time.Minute)
		state := f.service.Resolve(ctx, session.ID)
		require.NotNil(t, state.Session)
		require.False(t, state.IsAuthenticatedAt(f.clock.Now()))
	})

	t.Run("expired session is dropped", func(t *testing.T) {
		f.clock.Advance(8 * 24 * time.Hour)
		require.Nil(t, f.service.Resolve(ctx, session.ID).Session)
	})
}

func TestResolveToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "kate", users.RoleUser, true)

	session, _, err := f.service.Login(ctx, "kate", testPassword)
	require.NoError(t, err)

	t.Run("token carries its session including the passcode flag", func(t *testing.T) {
		state := f.service.ResolveToken(ctx, session.AccessToken)
		require.NotNil(t, state.Session)
		require.True(t, state.Session.RequiresOTP())
	})

	t.Run("garbage token", func(t *testing.T) {
		require.Nil(t, f.service.ResolveToken(ctx, "not-a-token").Session)
	})

	t.Run("refreshed token replaces the old one", func(t *testing.T) {
		refreshed, err := f.service.Refresh(ctx, session)
		require.NoError(t, err)
		require.Nil(t, f.service.ResolveToken(ctx, session.AccessToken).Session)
		require.NotNil(t, f.service.ResolveToken(ctx, refreshed.AccessToken).Session)
	})
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ivy", users.RoleUser, false)

	_, _, err := f.service.Login(ctx, "ivy", testPassword)
	require.NoError(t, err)

	removed, err := f.service.SweepExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)

	f.clock.Advance(8 * 24 * time.Hour)
	removed, err = f.service.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, removed, "one session and one refresh token")
}

func TestProviderOverService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "jack", users.RoleUser, true)

	provider := sessions.NewProvider(f.service, sessions.NewMemoryStore(nil), sessions.WithProviderNowFunc(f.clock.Now))
	require.NoError(t, provider.Hydrate(ctx))

	state, err := provider.Login(ctx, "jack", testPassword)
	require.NoError(t, err)
	require.True(t, state.Session.RequiresOTP())

	state, err = provider.VerifyOTP(ctx, f.sender.Last())
	require.NoError(t, err)
	require.False(t, state.Session.RequiresOTP())
	require.Equal(t, "jack", state.User.Name)

	tok, err := provider.Token()
	require.NoError(t, err)
	require.Equal(t, state.Session.AccessToken, tok.AccessToken)

	require.NoError(t, provider.Logout(ctx))
	require.Nil(t, provider.State().Session)
}
