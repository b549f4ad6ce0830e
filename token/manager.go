package token

import (
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by an access token.
type Claims struct {
	Name      string     `json:"name"`
	Role      users.Role `json:"role"`
	SessionID string     `json:"sid,omitempty"` // Server-side session the token belongs to
	jwt.RegisteredClaims
}

type Manager struct {
	signer            Signer            // Token signing and verification
	issuer            string            // iss claim written and required on parse
	accessTokenExpiry time.Duration     // Lifetime of access tokens
	denylist          Denylist          // Revoked token ids
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithDenylist(denylist Denylist) ManagerOption {
	return func(m *Manager) {
		m.denylist = denylist
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer: signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 15 * time.Minute
	}
	if m.denylist == nil {
		m.denylist = NewMemoryDenylist()
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// AccessTokenExpiry returns the lifetime given to new access tokens.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// CreateAccessToken signs a token for user expiring after the configured lifetime.
// sessionID binds the token to a server-side session and may be empty.
func (m *Manager) CreateAccessToken(user *users.User, sessionID string) (string, error) {
	if user == nil {
		return "", errors.ErrUserNotFound
	}

	now := m.nowFunc()
	claims := Claims{
		Name:      user.Name,
		Role:      user.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrapf(err, "Manager.CreateAccessToken")
	}
	return signed, nil
}

// Parse verifies raw and returns its claims. Expired tokens return ErrTokenExpired,
// every other failure (bad signature, wrong issuer, revoked) returns ErrInvalidToken.
func (m *Manager) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, m.signer.GetVerificationKey, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "%s", err.Error())
	}
	if !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	if claims.ID != "" && m.denylist.Contains(claims.ID) {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "revoked")
	}
	return claims, nil
}

// Revoke blocks raw until its natural expiry. Already expired tokens need no entry.
func (m *Manager) Revoke(raw string) error {
	claims, err := m.Parse(raw)
	if err != nil {
		if errors.Is(err, errors.ErrTokenExpired) {
			return nil
		}
		return err
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return m.denylist.Add(claims.ID, claims.ExpiresAt.Time)
}

// PruneRevoked drops denylist entries for tokens that have expired anyway.
func (m *Manager) PruneRevoked() int {
	return m.denylist.Prune(m.nowFunc())
}
