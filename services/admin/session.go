package admin

import "sync"

// State is the admin conversation state, advanced by menu callbacks and
// consumed by the next free-text message.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitBroadcastText State = "await_broadcast_text"
	StateAwaitLinkSupport   State = "await_link_support"
	StateAwaitLinkRef       State = "await_link_ref"
	StateAwaitLinkToken     State = "await_link_token"
)

// Session carries the in-flight admin flow. LangFilter narrows the
// broadcast audience; empty means every language.
type Session struct {
	State      State
	LangFilter string
}

// SessionStore keeps one session per admin id. Keyed even though a single
// admin is configured, so a second admin id never inherits stale state.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[int64]*Session{}}
}

func (s *SessionStore) Get(adminID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[adminID]; ok {
		return *sess
	}
	return Session{State: StateIdle}
}

func (s *SessionStore) Set(adminID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[adminID] = &sess
}

func (s *SessionStore) Reset(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, adminID)
}
