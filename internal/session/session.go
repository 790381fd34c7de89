// Package session exposes the signed-in identity to the rest of the agent:
// who the user is, whether they hold the administrator role, and the bearer
// token for backend calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"translator/internal/models"
)

// RoleAdmin is the role exempt from the translation quota.
const RoleAdmin = "admin"

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no signed-in session")

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s Session) IsAdmin() bool {
	return strings.EqualFold(s.User.Role, RoleAdmin)
}

func (s Session) Actor() models.Actor {
	return models.Actor{ID: s.User.ID, Name: s.User.Name}
}

// Provider resolves the current session. Implementations must be safe for
// concurrent use; the role may change at any time.
type Provider interface {
	Current(ctx context.Context) (Session, error)
	IsExempt(ctx context.Context) (bool, error)
	Token(ctx context.Context) (string, error)
}

// isExempt is shared by the providers. Being signed out is not an error,
// just not exempt.
func isExempt(ctx context.Context, p Provider) (bool, error) {
	s, err := p.Current(ctx)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.IsAdmin(), nil
}

func token(ctx context.Context, p Provider) (string, error) {
	s, err := p.Current(ctx)
	if err != nil {
		return "", err
	}
	if s.Token == "" {
		return "", fmt.Errorf("%w: session has no token", ErrNoSession)
	}
	return s.Token, nil
}

// New creates the provider selected by the configuration.
func New(cfg models.SessionConfig) (Provider, error) {
	switch cfg.Source {
	case models.SessionSourceFile:
		return NewFileSession(cfg.Path), nil
	case models.SessionSourceStatic:
		return NewStaticSession(Session{
			Token: cfg.Static.Token,
			User: User{
				ID:   cfg.Static.UserID,
				Name: cfg.Static.UserName,
				Role: cfg.Static.Role,
			},
		}), nil
	default:
		return nil, fmt.Errorf("unsupported session source: %s", cfg.Source)
	}
}
