package authflowrepo

import (
	"context"
	"errors"
	"sync"
	"time"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]*AuthFlowState
	ttl     time.Duration
	nowTime func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory auth flow state repository. States
// older than ttl are discarded; zero keeps them until used.
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		states:  make(map[string]*AuthFlowState),
		ttl:     ttl,
		nowTime: time.Now,
	}
}

// Upsert stores or updates an auth flow state
func (r *InMemoryRepo) Upsert(_ context.Context, state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	stored := *authState
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.nowTime()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.states[state] = &stored
	return nil
}

func (r *InMemoryRepo) Take(_ context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, ErrStateNotFound
	}
	delete(r.states, state)

	if r.expired(authState) {
		return nil, ErrStateNotFound
	}
	taken := *authState
	return &taken, nil
}

// Delete removes an auth flow state
func (r *InMemoryRepo) Delete(_ context.Context, state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) expired(s *AuthFlowState) bool {
	return r.ttl > 0 && r.nowTime().Sub(s.CreatedAt) > r.ttl
}

// pruneLocked drops abandoned flows. Callers hold r.mu.
func (r *InMemoryRepo) pruneLocked() {
	for k, s := range r.states {
		if r.expired(s) {
			delete(r.states, k)
		}
	}
}
