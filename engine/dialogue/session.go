// Package dialogue owns the per-session conversation state machine. Sessions
// are server-side, in-memory and non-durable; each one tracks where the
// visitor is in the contact-capture flow.
package dialogue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillhq/quill/engine/domain"
)

// DefaultIdleTimeout evicts sessions with no activity for this long.
const DefaultIdleTimeout = 30 * time.Minute

// Session is one visitor's conversation state. A session has a single
// logical owner; Acquire hands it out locked so turns on the same session
// never interleave.
type Session struct {
	ID string

	mu       sync.Mutex
	contact  domain.ContactState
	lastSeen time.Time
}

// Contact returns the contact-capture state. Callers must hold the session.
func (s *Session) Contact() domain.ContactState { return s.contact }

// SessionStore keeps live sessions keyed by ID and evicts idle ones.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	now         func() time.Time // for testing
}

// NewSessionStore creates a store with the given idle timeout.
func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &SessionStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Acquire returns the session for id, locked, along with a release func. An
// empty or unknown id mints a fresh session. Idle sessions are evicted on
// the way in.
func (s *SessionStore) Acquire(id string) (*Session, func()) {
	s.mu.Lock()
	s.evictIdle()

	sess, ok := s.sessions[id]
	if !ok {
		if id == "" {
			id = uuid.NewString()
		}
		sess = &Session{ID: id}
		s.sessions[id] = sess
	}
	sess.lastSeen = s.now()
	s.mu.Unlock()

	sess.mu.Lock()
	return sess, sess.mu.Unlock
}

// MarkContactSubmitted moves the session to the terminal contact state. Only
// the lead-capture handoff calls this; the state machine itself never does.
// Unknown ids are a no-op: the submission still went through, there is just
// no live session to update.
func (s *SessionStore) MarkContactSubmitted(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.contact = domain.ContactSubmitted
	sess.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// evictIdle removes sessions past the idle timeout. Must hold s.mu.
func (s *SessionStore) evictIdle() {
	cutoff := s.now().Add(-s.idleTimeout)
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
