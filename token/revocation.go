package token

import (
	"sync"
	"time"
)

// Denylist holds the jti of access tokens revoked before they expire. An entry
// only has to outlive its token, so Prune drops anything past its exp.
type Denylist interface {
	Add(jti string, exp time.Time) error
	Contains(jti string) bool
	Prune(now time.Time) int
}

type MemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token exp
}

var _ Denylist = (*MemoryDenylist)(nil)

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: map[string]time.Time{}}
}

func (d *MemoryDenylist) Add(jti string, exp time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.entries[jti]; !ok || exp.After(cur) {
		d.entries[jti] = exp
	}
	return nil
}

func (d *MemoryDenylist) Contains(jti string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[jti]
	return ok
}

// Prune removes entries whose token has expired by now and reports how many went.
func (d *MemoryDenylist) Prune(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	pruned := 0
	for jti, exp := range d.entries {
		if !now.Before(exp) {
			delete(d.entries, jti)
			pruned++
		}
	}
	return pruned
}

func (d *MemoryDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
