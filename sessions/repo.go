package sessions

import (
	"context"
	"time"
)

// Repo stores server-side sessions keyed by Session.ID.
type Repo interface {
	// Upsert creates or updates a session
	Upsert(ctx context.Context, session *Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session by ID
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes sessions whose ExpiresAt is before now
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
