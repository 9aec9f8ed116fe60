// Package session holds per-user interaction state: the login flag and the
// pending delete confirmation.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is safe for concurrent use.
type Session struct {
	mu            sync.Mutex
	user          string
	authenticated bool
	pendingDelete string
	lastSeen      time.Time
}

func (s *Session) Login(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.authenticated = true
	s.pendingDelete = ""
}

func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = ""
	s.authenticated = false
	s.pendingDelete = ""
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// ConfirmDelete records a delete request for id. It reports true when the
// request confirms an earlier one for the same id, and clears the pending
// state in that case. A request for any other id replaces the pending one.
func (s *Session) ConfirmDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingDelete != "" && s.pendingDelete == id {
		s.pendingDelete = ""
		return true
	}
	s.pendingDelete = id
	return false
}

// Navigate abandons any pending delete confirmation.
func (s *Session) Navigate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDelete = ""
}

func (s *Session) PendingDelete() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDelete, s.pendingDelete != ""
}

// Store maps opaque tokens to sessions. Sessions idle longer than the TTL
// are dropped on access.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{ttl: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// Create starts a new session and returns its token. Idle sessions past the
// TTL are evicted on the way.
func (st *Store) Create() (string, *Session) {
	token := uuid.NewString()
	now := st.now()
	sess := &Session{lastSeen: now}
	st.mu.Lock()
	st.sweep(now)
	st.sessions[token] = sess
	st.mu.Unlock()
	return token, sess
}

func (st *Store) sweep(now time.Time) {
	for token, sess := range st.sessions {
		sess.mu.Lock()
		expired := now.Sub(sess.lastSeen) > st.ttl
		sess.mu.Unlock()
		if expired {
			delete(st.sessions, token)
		}
	}
}

// Len reports how many sessions are held.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) Get(token string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[token]
	if !ok {
		return nil, false
	}
	now := st.now()
	sess.mu.Lock()
	expired := now.Sub(sess.lastSeen) > st.ttl
	if !expired {
		sess.lastSeen = now
	}
	sess.mu.Unlock()
	if expired {
		delete(st.sessions, token)
		return nil, false
	}
	return sess, true
}

func (st *Store) Remove(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, token)
}
