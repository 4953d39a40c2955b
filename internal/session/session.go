package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"agora/internal/models"
)

// Session is one visitor's server-side state: the cart, the CSRF token
// and, after login, the authenticated user id. It is an explicit value
// handed to operations rather than ambient global state.
type Session struct {
	ID        string
	UserID    string
	Cart      models.Cart
	CSRFToken string
}

// Authenticated reports whether a user is bound to the session.
func (s *Session) Authenticated() bool { return s.UserID != "" }

// ValidateCSRF compares a submitted token against the session token in
// constant time.
func (s *Session) ValidateCSRF(submitted string) bool {
	if submitted == "" || s.CSRFToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(submitted)) == 1
}

// newCSRFToken mints a 24-byte random token, hex encoded.
func newCSRFToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Store holds sessions keyed by id.
type Store interface {
	Get(id string) (*Session, error)
	Create() (*Session, error)
	Save(s *Session) error
	Delete(id string) error
}

// MemoryStore is an in-memory Store guarded by a RWMutex. Sessions are
// copied in and out so callers never share the stored map.
type MemoryStore struct {
	sessions map[string]Session
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Get returns a copy of the session with the given id.
func (m *MemoryStore) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	out := s
	out.Cart = s.Cart.Clone()
	return &out, nil
}

// Create makes a new session with an empty cart and a fresh CSRF token.
func (m *MemoryStore) Create() (*Session, error) {
	token, err := newCSRFToken()
	if err != nil {
		return nil, err
	}
	s := Session{
		ID:        uuid.New().String(),
		Cart:      models.NewCart(),
		CSRFToken: token,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s

	out := s
	out.Cart = s.Cart.Clone()
	return &out, nil
}

// Save writes the session back. Concurrent saves of the same session are
// last-write-wins; the mutex only serializes the map access itself.
func (m *MemoryStore) Save(s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("cannot save session without an ID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *s
	stored.Cart = s.Cart.Clone()
	m.sessions[s.ID] = stored
	return nil
}

// Delete removes a session, destroying its cart.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
