package refresh

import (
	"sync"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

type InMemoryRepo struct {
	tokens map[string]StoredRefreshToken
	lock   sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tokens: make(map[string]StoredRefreshToken),
	}
}

func (r *InMemoryRepo) Upsert(refreshToken *StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tokens[refreshToken.Token] = *refreshToken
	return nil
}

func (r *InMemoryRepo) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return errors.ErrInvalidRefreshToken
	}
	delete(r.tokens, token)
	return nil
}

func (r *InMemoryRepo) Get(token string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, errors.ErrInvalidRefreshToken
	}
	return &rt, nil
}

func (r *InMemoryRepo) DeleteIssuedBefore(t time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	removed := 0
	for k, rt := range r.tokens {
		if rt.Iat.Before(t) {
			delete(r.tokens, k)
			removed++
		}
	}
	return removed, nil
}
