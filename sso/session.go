package sso

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// SessionCookie names the portal session cookie.
	SessionCookie = "account-controller-session"

	DefaultSessionTTL = 8 * time.Hour
)

var ErrSessionNotFound = errors.New("session is missing or expired")

type session struct {
	identity Identity
	expires  time.Time
}

// SessionStore keeps signed-in identities in memory, keyed by opaque
// token. Sessions do not survive a restart, matching the stateless
// deployment model where tags hold all durable state.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers the identity and returns its session token.
func (s *SessionStore) Create(id Identity) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = session{identity: id, expires: s.now().Add(s.ttl)}

	return token
}

// Get resolves a token, dropping it once expired.
func (s *SessionStore) Get(token string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if !s.now().Before(sess.expires) {
		delete(s.sessions, token)
		return nil, ErrSessionNotFound
	}

	id := sess.identity

	return &id, nil
}

// Revoke drops a token, if present.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
}
