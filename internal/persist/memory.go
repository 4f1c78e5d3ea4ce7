package persist

import (
	"context"
	"sync"

	"github.com/comigor/chatstore/internal/session"
)

// MemoryStore keeps the session set in memory. Useful for tests and
// for embedding the store without durable persistence.
type MemoryStore struct {
	mu       sync.Mutex
	sessions []*session.Session
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: []*session.Session{}}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context) ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session.Session, len(s.sessions))
	copy(out, s.sessions)
	return out, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, sessions []*session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make([]*session.Session, len(sessions))
	copy(s.sessions, sessions)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
