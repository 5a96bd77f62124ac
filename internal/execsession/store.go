package execsession

import (
	"sync"
)

// Store is a worker-scoped registry of live exec sessions, keyed by
// process id. Created once at worker startup, shared across activities.
//
// Maps to: codex-rs/core/src/unified_exec/manager.rs UnifiedExecProcessManager
type Store struct {
	mu       sync.Mutex
	sessions map[string]*ExecSession
}

// NewStore creates a new empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*ExecSession)}
}

// Put registers a session under its ProcessID, replacing (and closing) any
// existing session registered under the same id.
func (s *Store) Put(sess *ExecSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sess.ProcessID]; ok && existing != sess {
		existing.Close()
	}
	s.sessions[sess.ProcessID] = sess
}

// Get returns the session for a process id, or nil if not found.
func (s *Store) Get(processID string) *ExecSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[processID]
}

// Remove closes and removes the session for a process id, if present.
func (s *Store) Remove(processID string) {
	s.mu.Lock()
	sess, ok := s.sessions[processID]
	if ok {
		delete(s.sessions, processID)
	}
	s.mu.Unlock()

	if ok {
		sess.Close()
	}
}

// ReapExited removes and closes every session that has already exited,
// returning their process ids. Intended to run periodically from the
// worker so long-idle exited PTYs don't leak in the registry.
func (s *Store) ReapExited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reaped []string
	for id, sess := range s.sessions {
		if sess.HasExited() {
			sess.Close()
			delete(s.sessions, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}
