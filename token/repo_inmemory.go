package token

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryRepo keeps one pair per profile for the life of the process.
type InMemoryRepo struct {
	mu      sync.RWMutex
	profile string
	pairs   map[string]Pair // profile -> pair
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates an empty in-memory repository for profile
func NewInMemoryRepo(profile string) *InMemoryRepo {
	return &InMemoryRepo{profile: profile, pairs: make(map[string]Pair)}
}

func (r *InMemoryRepo) Load(_ context.Context) (Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pairs[r.profile], nil
}

func (r *InMemoryRepo) Save(_ context.Context, pair Pair) error {
	if !pair.Complete() {
		return fmt.Errorf("[InMemoryRepo Save] both tokens are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[r.profile] = pair
	return nil
}

// Clear removes the pair, already doesn't exist is no error
func (r *InMemoryRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pairs, r.profile)
	return nil
}
