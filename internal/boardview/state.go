package boardview

import (
	"sync"

	"github.com/localnerve/retroboard/internal/models"
)

// AppState is the client session shared by the views of one process.
// It is created once, passed to every Controller, and lives from Start to Reset.
type AppState struct {
	mu    sync.RWMutex
	user  *models.User
	token string
	flags models.BoardOptions
}

// NewAppState returns an empty, signed out state
func NewAppState() *AppState {
	return &AppState{}
}

// Start begins a session
func (s *AppState) Start(user *models.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.user = &u
	s.token = token
	s.flags = models.BoardOptions{}
}

// Reset ends the session and clears every cached value
func (s *AppState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
	s.flags = models.BoardOptions{}
}

// User returns a copy of the signed in user, or nil
func (s *AppState) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserID returns the signed in user's id or ""
func (s *AppState) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Token returns the session token
func (s *AppState) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAdmin reports whether the session user has the admin role
func (s *AppState) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin()
}

// Flags returns the feature flags of the board on screen
func (s *AppState) Flags() models.BoardOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// SetFlags records the feature flags of the board on screen
func (s *AppState) SetFlags(flags models.BoardOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
}
