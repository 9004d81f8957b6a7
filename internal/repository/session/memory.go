package session

import (
	"context"
	"errors"
	"sync"

	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
)

// Store defines access to conversation states.
type Store interface {
	// Get returns a copy of the state for key; unknown keys are Idle.
	Get(ctx context.Context, key string) *domain.ConversationState
	// Update runs fn on a copy of the state for key while holding that key's
	// lock. The copy replaces the stored state only if fn returns nil.
	Update(
		ctx context.Context,
		key string,
		fn func(state *domain.ConversationState) error,
	) (*domain.ConversationState, error)
}

// ErrEmptyKey is returned when a correlation key is missing.
var ErrEmptyKey = errors.New("correlation key is empty")

// entry guards one conversation.
type entry struct {
	mu    sync.Mutex
	state *domain.ConversationState
}

// MemoryStore is an in-process Store with one lock per key.
type MemoryStore struct {
	// mu protects the entries map only, never a state.
	mu      sync.Mutex
	entries map[string]*entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
	}
}

// Get returns a copy of the state for key. An empty key yields an idle state
// that is not stored.
func (s *MemoryStore) Get(_ context.Context, key string) *domain.ConversationState {
	if key == "" {
		return domain.NewConversationState(key)
	}

	e := s.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Clone()
}

// Update applies fn to the state for key and commits it when fn succeeds.
// It returns the state as stored after the call.
func (s *MemoryStore) Update(
	_ context.Context,
	key string,
	fn func(state *domain.ConversationState) error,
) (*domain.ConversationState, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	e := s.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.state.Clone()
	if err := fn(working); err != nil {
		return e.state.Clone(), err
	}

	e.state = working

	return working.Clone(), nil
}

// Len returns the number of known conversations.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// entry returns the entry for key, creating an idle one if needed.
func (s *MemoryStore) entry(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{state: domain.NewConversationState(key)}
		s.entries[key] = e
	}

	return e
}
