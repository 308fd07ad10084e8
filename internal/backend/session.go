package backend

import (
	"sync"

	"github.com/support1122/flashfire-dashboard/internal/models"
)

// Session is the caller identity attached to every request. For an
// operations actor Email is the client account being worked on.
type Session struct {
	Email string
	Name  string
	Actor models.Actor

	mu    sync.RWMutex
	token string
}

// NewSession creates a session with the token the auth service issued.
func NewSession(email, name, token string, actor models.Actor) *Session {
	return &Session{
		Email: email,
		Name:  name,
		Actor: actor,
		token: token,
	}
}

// Token returns the current bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken swaps in a refreshed token.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// UserDetails is the identity block the backend expects in mutation bodies.
type UserDetails struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (s *Session) userDetails() UserDetails {
	return UserDetails{Email: s.Email, Name: s.Name}
}
