package services

import (
	"errors"
	"sync"
)

var (
	ErrNotLoggedIn           = errors.New("not logged in")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// Session is the logged-in identity shared by the services and the sync
// trigger. The zero value is logged out.
type Session struct {
	mu       sync.RWMutex
	userID   string
	username string
	online   bool
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Online reports whether the session was opened against the server.
func (s *Session) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *Session) LoggedIn() bool {
	return s.UserID() != ""
}

func (s *Session) set(userID, username string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID, s.username, s.online = userID, username, online
}

func (s *Session) clear() {
	s.set("", "", false)
}

func (s *Session) require() (string, error) {
	id := s.UserID()
	if id == "" {
		return "", ErrNotLoggedIn
	}
	return id, nil
}
