// Package session provides an in-memory session store with expiry.
package session

import (
	"sync"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/ports"
	"github.com/google/uuid"
)

const DefaultTTL = 24 * time.Hour

// MemoryStore keeps sessions in a map. Expired entries are removed lazily on
// access and by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]domain.Session
	now      func() time.Time
}

var _ ports.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

// Get returns a live session.
func (m *MemoryStore) Get(id string) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		return domain.Session{}, false
	}
	return s, true
}

// Set stores the session with a fresh expiry, assigning an id when it has
// none, and returns the stored copy.
func (m *MemoryStore) Set(s domain.Session) domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.ExpiresAt = m.now().Add(m.ttl)
	m.sessions[s.ID] = s
	return s
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sweep drops every expired session and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
