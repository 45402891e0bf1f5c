package state

import (
	"errors"
	"ramadanprep/core"
	"sort"
	"sync"
)

// ErrTooManySessions is returned when the coach session limit is reached.
var ErrTooManySessions = errors.New("too many active coach sessions")

// AppState holds application state
type AppState struct {
	Sessions map[string]core.Session
	sync.RWMutex
}

// Global is the shared application state instance
var Global = &AppState{
	Sessions: make(map[string]core.Session),
}

// RemoveAndStopSession safely removes and stops a session to avoid deadlocks
func (s *AppState) RemoveAndStopSession(id string) bool {
	s.Lock()
	session, exists := s.Sessions[id]
	if exists {
		delete(s.Sessions, id)
	}
	s.Unlock()

	// Stop session outside lock to avoid deadlocks
	if exists {
		session.Stop()
		return true
	}
	return false
}

// RemoveSession forgets a session that already stopped itself.
func (s *AppState) RemoveSession(id string) {
	s.Lock()
	defer s.Unlock()
	delete(s.Sessions, id)
}

// GetSession safely fetches a session
func (s *AppState) GetSession(id string) (core.Session, bool) {
	s.RLock()
	defer s.RUnlock()
	session, exists := s.Sessions[id]
	return session, exists
}

// AddSession registers a session unless limit sessions are already active.
// A limit of zero or less means unlimited.
func (s *AppState) AddSession(session core.Session, limit int) error {
	s.Lock()
	defer s.Unlock()
	if limit > 0 && len(s.Sessions) >= limit {
		return ErrTooManySessions
	}
	s.Sessions[session.ID()] = session
	return nil
}

// Count returns the number of active sessions
func (s *AppState) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.Sessions)
}

// Stats returns a snapshot of every active session, oldest first.
func (s *AppState) Stats() []core.SessionStats {
	s.RLock()
	sessions := make([]core.Session, 0, len(s.Sessions))
	for _, session := range s.Sessions {
		sessions = append(sessions, session)
	}
	s.RUnlock()

	stats := make([]core.SessionStats, 0, len(sessions))
	for _, session := range sessions {
		stats = append(stats, session.GetStats())
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].StartedAt.Before(stats[j].StartedAt)
	})
	return stats
}

// StopAll stops every session, used on shutdown.
func (s *AppState) StopAll() int {
	s.Lock()
	sessions := s.Sessions
	s.Sessions = make(map[string]core.Session)
	s.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
	return len(sessions)
}
