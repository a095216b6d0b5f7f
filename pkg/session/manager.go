package session

import (
	"sync"
)

// Manager is the in-memory session store. Capacity is enforced on create:
// when the store is full, the session with the oldest Updated time is
// evicted before the new one is inserted.
//
// Sessions cross the store boundary by value: every accessor returns a
// clone, and Update stores a clone of its argument. Callers mutate their
// copy freely and write it back; stored entries are only ever touched
// under the store lock.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
}

func NewManager(maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// GetOrCreate returns a copy of the session for key, creating it if
// absent. Creation at capacity evicts the oldest-updated session first,
// so the store never exceeds maxSessions. Mutations to the returned copy
// are not visible until written back with Update.
func (m *Manager) GetOrCreate(key, agentID, channel string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		return s.Clone()
	}

	if len(m.sessions) >= m.maxSessions {
		m.evictOldestLocked()
	}

	s := newSession(key, agentID, channel)
	m.sessions[key] = s
	return s.Clone()
}

func (m *Manager) evictOldestLocked() {
	var oldestKey string
	for key, s := range m.sessions {
		if oldestKey == "" || s.Updated.Before(m.sessions[oldestKey].Updated) {
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(m.sessions, oldestKey)
	}
}

// Get returns a copy of the session for key.
func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Update writes a mutated copy back, upserting under its own key.
// Last writer wins. The store keeps its own clone so the caller can
// keep using the argument.
func (m *Manager) Update(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Key] = s.Clone()
}

func (m *Manager) Remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; !ok {
		return false
	}
	delete(m.sessions, key)
	return true
}

func (m *Manager) ListKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.sessions))
	for key := range m.sessions {
		keys = append(keys, key)
	}
	return keys
}

// List returns snapshots of all sessions for reporting endpoints.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
