package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/tobyn/inkwell/internal/domain"
)

// MemoryStore is an in-memory SessionStore for tests and local development.
// Sessions are deep-copied on the way in and out so callers never share
// mutable state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.BookSession
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.BookSession)}
}

// Connect is a no-op for the in-memory backend.
func (s *MemoryStore) Connect(ctx context.Context) error {
	return nil
}

// Get retrieves a session by id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: session id.
// Returns:
//   - *domain.BookSession: deep copy of the stored session.
//   - error: ErrNotFound if no session exists for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.BookSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session)
}

// Save creates or overwrites a session record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - session: session to persist.
// Returns:
//   - error: non-nil if the session cannot be copied.
func (s *MemoryStore) Save(ctx context.Context, session *domain.BookSession) error {
	copied, err := cloneSession(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[session.ID] = copied
	s.mu.Unlock()
	return nil
}

// Delete removes a session by id. Deleting an absent id is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// List returns all sessions, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]domain.BookSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BookSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied, err := cloneSession(session)
		if err != nil {
			return nil, err
		}
		out = append(out, *copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// cloneSession deep-copies a session through JSON, the same encoding the
// persistent backends use for nested columns.
func cloneSession(in *domain.BookSession) (*domain.BookSession, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out domain.BookSession
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
