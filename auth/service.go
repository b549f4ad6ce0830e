// Package auth implements the server side of login: credential checks, the
// one-time passcode step, token refresh and logout.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/craftyxhub/craftyx-portal/token"
	"github.com/craftyxhub/craftyx-portal/token/refresh"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultOTPLength  = 6
	defaultOTPExpiry  = 5 * time.Minute
	defaultOTPTries   = 5
	defaultSessionAge = 7 * 24 * time.Hour
)

// Repos holds the repository dependencies of the Service
type Repos struct {
	Users    users.UserRepo
	Sessions sessions.Repo
}

// Service authenticates users against the local user store. It implements
// sessions.Authenticator so a Provider can run on top of it directly.
type Service struct {
	repos      Repos
	tokens     *token.Manager
	refreshes  *refresh.Manager
	otpSender  OTPSender
	otpLength  int
	otpExpiry  time.Duration
	otpTries   int // Failed passcode attempts allowed before the session is dropped
	sessionAge time.Duration
	nowTime    func() time.Time
}

var _ sessions.Authenticator = (*Service)(nil)

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithOTPSender(sender OTPSender) ServiceOption {
	return func(s *Service) {
		s.otpSender = sender
	}
}

func WithOTPLength(length int) ServiceOption {
	return func(s *Service) {
		s.otpLength = length
	}
}

func WithOTPExpiry(expiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.otpExpiry = expiry
	}
}

// WithOTPMaxAttempts sets how many wrong passcodes a session survives. The
// attempt that reaches the limit ends the session.
func WithOTPMaxAttempts(attempts int) ServiceOption {
	return func(s *Service) {
		s.otpTries = attempts
	}
}

// WithSessionAge sets how long a server-side session lives regardless of refreshes.
func WithSessionAge(age time.Duration) ServiceOption {
	return func(s *Service) {
		s.sessionAge = age
	}
}

// NewService builds a Service. All repositories and both token managers are required.
func NewService(repos Repos, tokens *token.Manager, refreshes *refresh.Manager, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[NewService] Sessions repo is required")
	}
	if tokens == nil || refreshes == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[NewService] token managers are required")
	}

	s := &Service{
		repos:      repos,
		tokens:     tokens,
		refreshes:  refreshes,
		otpSender:  LogOTPSender{},
		otpLength:  defaultOTPLength,
		otpExpiry:  defaultOTPExpiry,
		otpTries:   defaultOTPTries,
		sessionAge: defaultSessionAge,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.otpTries <= 0 {
		s.otpTries = defaultOTPTries
	}
	return s, nil
}

// Register creates a new user with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string, role users.Role, otpEnabled bool) (*users.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "username is required")
	}
	if !role.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unknown role %q", role)
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "%s", err.Error())
	}

	if _, err := s.repos.Users.GetByName(ctx, name); err == nil {
		return nil, errors.ErrUserExists
	} else if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, errors.Wrapf(err, "[Register] lookup")
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrapf(err, "[Register] hash password")
	}

	user := &users.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		OTPEnabled:   otpEnabled,
		CreatedAt:    s.nowTime(),
	}
	if err := s.repos.Users.Upsert(ctx, user); err != nil {
		return nil, errors.Wrapf(err, "[Register] store user")
	}
	return user, nil
}

// Login checks the credentials and opens a session. Users with OTP enabled get a
// session flagged OTPRequired and a passcode is sent to them.
func (s *Service) Login(ctx context.Context, username, password string) (*sessions.Session, *users.User, error) {
	user, err := s.repos.Users.GetByName(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, nil, errors.ErrInvalidCredentials
		}
		return nil, nil, errors.Wrapf(err, "[Login] lookup")
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, errors.ErrInvalidCredentials
	}

	sessionID := uuid.New().String()
	accessToken, err := s.tokens.CreateAccessToken(user, sessionID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "[Login] access token")
	}
	refreshToken, err := s.refreshes.Create(user.ID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "[Login] refresh token")
	}
	discard := func() {
		if err := s.refreshes.Delete(refreshToken); err != nil {
			log.Debug().Err(err).Msg("refresh token not removed after failed login")
		}
	}

	now := s.nowTime()
	session := &sessions.Session{
		ID:           sessionID,
		UserID:       user.ID,
		Username:     user.Name,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		OTPRequired:  sessions.OTPNotRequired,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.sessionAge),
	}

	var code string
	if user.OTPEnabled {
		if code, err = s.issueOTP(session); err != nil {
			discard()
			return nil, nil, errors.Wrapf(err, "[Login] issue passcode")
		}
	}

	if err := s.repos.Sessions.Upsert(ctx, session); err != nil {
		discard()
		return nil, nil, errors.Wrapf(err, "[Login] store session")
	}
	if code != "" {
		if err := s.otpSender.SendOTP(ctx, user, code); err != nil {
			_ = s.repos.Sessions.Delete(ctx, session.ID)
			discard()
			return nil, nil, errors.Wrapf(err, "[Login] send passcode")
		}
	}
	if err := s.repos.Users.SetLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	log.Debug().Str("username", user.Name).Bool("otp_required", session.RequiresOTP()).Msg("login succeeded")
	return clientView(session), user, nil
}

func (s *Service) issueOTP(session *sessions.Session) (string, error) {
	code, err := generateOTP(s.otpLength)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	session.OTPRequired = sessions.OTPRequired
	session.OTPCodeHash = string(hash)
	session.OTPExpiresAt = s.nowTime().Add(s.otpExpiry)
	return code, nil
}

// VerifyOTP checks the passcode for the session and clears the OTP flag.
func (s *Service) VerifyOTP(ctx context.Context, session *sessions.Session, code string) (*sessions.Session, error) {
	stored, err := s.storedSession(ctx, session)
	if err != nil {
		return nil, err
	}
	if !stored.RequiresOTP() {
		return nil, errors.ErrOTPNotRequired
	}
	if !s.nowTime().Before(stored.OTPExpiresAt) {
		return nil, errors.Wrapf(errors.ErrOTPInvalid, "passcode expired")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.OTPCodeHash), []byte(strings.TrimSpace(code))); err != nil {
		return nil, s.failOTP(ctx, stored)
	}

	stored.OTPRequired = sessions.OTPNotRequired
	stored.OTPCodeHash = ""
	stored.OTPExpiresAt = time.Time{}
	stored.OTPAttempts = 0
	if err := s.repos.Sessions.Upsert(ctx, stored); err != nil {
		return nil, errors.Wrapf(err, "[VerifyOTP] store session")
	}
	return clientView(stored), nil
}

// failOTP records a wrong passcode. Once the limit is reached the session and its
// tokens are dropped and the user has to sign in again.
func (s *Service) failOTP(ctx context.Context, stored *sessions.Session) error {
	stored.OTPAttempts++
	if stored.OTPAttempts < s.otpTries {
		if err := s.repos.Sessions.Upsert(ctx, stored); err != nil {
			return errors.Wrapf(err, "[VerifyOTP] store attempt")
		}
		return errors.ErrOTPInvalid
	}

	log.Warn().Str("session_id", stored.ID).Str("username", stored.Username).Msg("passcode attempts exhausted, session ended")
	if err := s.Logout(ctx, stored); err != nil {
		return errors.Wrapf(err, "[VerifyOTP] end session")
	}
	return errors.Wrapf(errors.ErrOTPInvalid, "too many attempts")
}

// Refresh rotates the refresh token and issues a new access token. The old access
// token is revoked. The OTP flag carries over unchanged.
func (s *Service) Refresh(ctx context.Context, session *sessions.Session) (*sessions.Session, error) {
	stored, err := s.storedSession(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.RefreshToken == "" || session.RefreshToken != stored.RefreshToken {
		return nil, errors.ErrInvalidRefreshToken
	}

	userID, newRefresh, err := s.refreshes.Rotate(stored.RefreshToken)
	if err != nil {
		if errors.Is(err, errors.ErrTokenExpired) {
			return nil, err
		}
		return nil, errors.Wrapf(errors.ErrInvalidRefreshToken, "%s", err.Error())
	}
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Refresh] lookup user")
	}
	accessToken, err := s.tokens.CreateAccessToken(user, stored.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Refresh] access token")
	}

	if err := s.tokens.Revoke(stored.AccessToken); err != nil {
		log.Debug().Err(err).Str("session_id", stored.ID).Msg("previous access token not revoked")
	}

	stored.AccessToken = accessToken
	stored.RefreshToken = newRefresh
	stored.Username = user.Name
	if err := s.repos.Sessions.Upsert(ctx, stored); err != nil {
		return nil, errors.Wrapf(err, "[Refresh] store session")
	}
	return clientView(stored), nil
}

// Logout revokes the session's tokens and removes it.
func (s *Service) Logout(ctx context.Context, session *sessions.Session) error {
	if session == nil {
		return nil
	}
	if session.AccessToken != "" {
		if err := s.tokens.Revoke(session.AccessToken); err != nil {
			log.Debug().Err(err).Msg("access token not revoked on logout")
		}
	}
	if session.RefreshToken != "" {
		_ = s.refreshes.Delete(session.RefreshToken)
	}
	if session.ID == "" {
		return nil
	}
	if err := s.repos.Sessions.Delete(ctx, session.ID); err != nil {
		return errors.Wrapf(err, "[Logout] delete session")
	}
	return nil
}

// Profile returns the user the session's access token was issued to.
func (s *Service) Profile(ctx context.Context, session *sessions.Session) (*users.User, error) {
	if session == nil || session.AccessToken == "" {
		return nil, errors.ErrNotAuthenticated
	}
	claims, err := s.tokens.Parse(session.AccessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repos.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, errors.Wrapf(err, "[Profile] lookup user")
	}
	return user, nil
}

// Resolve builds the AuthState for a server-side session id. Unknown, expired or
// tampered sessions resolve to the empty state. A session whose access token has
// merely expired is still returned so the caller can refresh it.
func (s *Service) Resolve(ctx context.Context, sessionID string) sessions.AuthState {
	if sessionID == "" {
		return sessions.AuthState{}
	}
	stored, err := s.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		return sessions.AuthState{}
	}
	if !stored.ExpiresAt.IsZero() && !s.nowTime().Before(stored.ExpiresAt) {
		_ = s.repos.Sessions.Delete(ctx, sessionID)
		return sessions.AuthState{}
	}

	if _, err := s.tokens.Parse(stored.AccessToken); err != nil && !errors.Is(err, errors.ErrTokenExpired) {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session carries an invalid access token")
		return sessions.AuthState{}
	}

	user, err := s.repos.Users.GetByID(ctx, stored.UserID)
	if err != nil {
		return sessions.AuthState{}
	}
	return sessions.AuthState{Session: clientView(stored), User: user}
}

// ResolveToken builds the AuthState for a bearer access token through the session
// named in its sid claim. Tokens that no longer match their session resolve to the
// empty state.
func (s *Service) ResolveToken(ctx context.Context, raw string) sessions.AuthState {
	if raw == "" {
		return sessions.AuthState{}
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil || claims.SessionID == "" {
		return sessions.AuthState{}
	}
	state := s.Resolve(ctx, claims.SessionID)
	if state.Session == nil || state.Session.AccessToken != raw {
		return sessions.AuthState{}
	}
	return state
}

// SweepExpired removes expired sessions, refresh tokens and revocation entries.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.repos.Sessions.DeleteExpired(ctx, s.nowTime())
	if err != nil {
		return 0, errors.Wrapf(err, "[SweepExpired] sessions")
	}
	if n, err := s.refreshes.Sweep(); err != nil {
		log.Warn().Err(err).Msg("refresh token sweep failed")
	} else {
		removed += n
	}
	if pruned := s.tokens.PruneRevoked(); pruned > 0 {
		log.Debug().Int("pruned", pruned).Msg("revoked access tokens pruned")
	}
	return removed, nil
}

func (s *Service) storedSession(ctx context.Context, session *sessions.Session) (*sessions.Session, error) {
	if session == nil || session.ID == "" {
		return nil, errors.ErrNotAuthenticated
	}
	stored, err := s.repos.Sessions.Get(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !stored.ExpiresAt.IsZero() && !s.nowTime().Before(stored.ExpiresAt) {
		_ = s.repos.Sessions.Delete(ctx, stored.ID)
		return nil, errors.ErrSessionExpired
	}
	return stored, nil
}

// clientView copies session without the server-only passcode fields.
func clientView(session *sessions.Session) *sessions.Session {
	view := *session
	view.OTPCodeHash = ""
	view.OTPExpiresAt = time.Time{}
	view.OTPAttempts = 0
	return &view
}
