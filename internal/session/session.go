// Package session holds per-user conversation state for the two-step relay
// setup. Sessions are ephemeral: a restart drops any half-finished capture and
// the user simply starts over.
package session

import "sync"

type State int

const (
	StateIdle State = iota
	StateAwaitingSource
	StateAwaitingTarget
)

// Session is one user's position in the relay setup conversation. PendingSource
// is only meaningful in StateAwaitingTarget.
type Session struct {
	State         State
	PendingSource string
}

// Store abstracts session persistence so the state machine does not care where
// sessions live. The in-memory implementation below is the only one in use.
type Store interface {
	Get(userID int64) Session
	Set(userID int64, s Session)
	Clear(userID int64)
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
	}
}

func (m *MemoryStore) Get(userID int64) Session {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}
	return Session{State: StateIdle}
}

func (m *MemoryStore) Set(userID int64, s Session) {
	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()
}

func (m *MemoryStore) Clear(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}
