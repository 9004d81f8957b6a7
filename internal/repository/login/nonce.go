package login

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of pending logins kept.
const DefaultCapacity = 1024

// NonceStore maps OAuth state values to correlation keys.
type NonceStore struct {
	pending *lru.Cache[string, string]
}

// NewNonceStore creates a store holding at most capacity pending logins.
func NewNonceStore(capacity int) (*NonceStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	cache, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("create nonce cache: %w", err)
	}

	return &NonceStore{pending: cache}, nil
}

// Issue returns a fresh state value bound to key.
func (s *NonceStore) Issue(key string) string {
	state := uuid.NewString()
	s.pending.Add(state, key)

	return state
}

// Resolve returns the key bound to state and forgets it.
func (s *NonceStore) Resolve(state string) (string, bool) {
	if state == "" {
		return "", false
	}

	key, ok := s.pending.Get(state)
	if ok {
		s.pending.Remove(state)
	}

	return key, ok
}
