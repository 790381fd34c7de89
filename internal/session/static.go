package session

import (
	"context"
	"sync"
)

// StaticSession holds a fixed identity from configuration. Its role can be
// changed at runtime for development and tests.
type StaticSession struct {
	mu      sync.RWMutex
	session Session
}

func NewStaticSession(s Session) *StaticSession {
	return &StaticSession{session: s}
}

func (s *StaticSession) Current(ctx context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session.User.ID == "" {
		return Session{}, ErrNoSession
	}
	return s.session, nil
}

func (s *StaticSession) IsExempt(ctx context.Context) (bool, error) {
	return isExempt(ctx, s)
}

func (s *StaticSession) Token(ctx context.Context) (string, error) {
	return token(ctx, s)
}

func (s *StaticSession) SetRole(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.User.Role = role
}

// Set replaces the whole session; an empty session signs the user out.
func (s *StaticSession) Set(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}
