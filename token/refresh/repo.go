package refresh

import (
	"time"
)

// StoredRefreshToken is the server-side record behind an opaque refresh token.
// The client only ever receives Token.
type StoredRefreshToken struct {
	Token  string    // Random token string sent to the client
	UserID string    // Owner of the token
	Iat    time.Time // Issued at time
}

// Repo stores refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteIssuedBefore(t time.Time) (int, error)
}
