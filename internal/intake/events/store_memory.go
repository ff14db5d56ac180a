package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps the most recent events per session in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]Event
	limit    int
}

// NewMemoryStore keeps at most limit events per session (0 means 100).
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 100
	}
	return &MemoryStore{sessions: make(map[uuid.UUID][]Event), limit: limit}
}

func (s *MemoryStore) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.sessions[e.SessionID], e)
	if len(list) > s.limit {
		list = list[len(list)-s.limit:]
	}
	s.sessions[e.SessionID] = list
	return nil
}

// ListBySession returns a copy of the session's events, oldest first.
func (s *MemoryStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.sessions[sessionID]...), nil
}

// Forget drops a closed session's events.
func (s *MemoryStore) Forget(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
