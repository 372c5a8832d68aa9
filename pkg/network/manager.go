package network

import "sync"

// ConnManager is the registry of connected sessions, keyed by session ID.
// The driver reads it once per tick to collect pending directions.
type ConnManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewConnManager creates an empty session registry.
func NewConnManager() *ConnManager {
	return &ConnManager{sessions: make(map[string]*Session)}
}

// Add registers s regardless of how many sessions are connected.
func (m *ConnManager) Add(s *Session) {
	m.TryAdd(s, 0)
}

// TryAdd registers s unless max sessions are already connected; max <= 0
// means no cap. The check and the insert happen under one lock, so
// simultaneous connections cannot overshoot the cap.
func (m *ConnManager) TryAdd(s *Session, max int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 && len(m.sessions) >= max {
		return false
	}
	m.sessions[s.ID] = s
	return true
}

// Remove unregisters the session with id and reports whether it was present.
func (m *ConnManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Count is the number of registered sessions.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Snapshot copies the registered sessions so callers can iterate without
// holding the lock.
func (m *ConnManager) Snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	return list
}
