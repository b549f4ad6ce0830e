package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryRepo) Upsert(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy so callers cannot mutate stored state
	r.sessions[session.ID] = *session
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return &session, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}
