package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
)

const tokenLength = 32 // 256 bits

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo    Repo
	expiry  time.Duration
	nowFunc func() time.Time
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, expiry time.Duration, nowFunc func() time.Time) *Manager {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Manager{
		repo:    repo,
		expiry:  expiry,
		nowFunc: nowFunc,
	}
}

// Create generates a new refresh token for userID and stores it
func (m *Manager) Create(userID string) (string, error) {
	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Rotate validates token, deletes it and issues a replacement for the same user.
func (m *Manager) Rotate(token string) (userID, newToken string, err error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return "", "", err
	}
	_ = m.repo.Delete(token)

	if m.IsExpired(rt) {
		return "", "", errors.ErrTokenExpired
	}

	newToken, err = m.Create(rt.UserID)
	if err != nil {
		return "", "", err
	}
	return rt.UserID, newToken, nil
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.expiry
}

// Sweep deletes every expired refresh token, returning how many were removed.
func (m *Manager) Sweep() (int, error) {
	return m.repo.DeleteIssuedBefore(m.nowFunc().Add(-m.expiry))
}
