package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/letterboxhq/letterbox/internal/models"
	"github.com/letterboxhq/letterbox/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInactiveUser       = errors.New("auth: user is deactivated")
	ErrInvalidSession     = errors.New("auth: invalid session")
)

// Service provides login, logout and session validation on top of the
// user and session stores.
type Service struct {
	users    store.UserStore
	sessions store.SessionStore
	ttl      time.Duration
}

func NewService(users store.UserStore, sessions store.SessionStore, ttl time.Duration) *Service {
	return &Service{users: users, sessions: sessions, ttl: ttl}
}

// Login verifies the credentials and opens a new session.
// Returns the user and the opaque session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("look up user: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrInactiveUser
	}

	token, err := s.StartSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// StartSession opens a session for an already-authenticated user and
// returns the opaque token. Credential checks are the caller's problem;
// login and account self-signup both funnel through here.
func (s *Service) StartSession(ctx context.Context, user *models.User) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	if _, err := s.sessions.CreateSession(ctx, token, user.ID, time.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Logout destroys the session for the given token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// ValidateSession resolves a session token to its user. Expired tokens
// and deactivated users are both rejected.
func (s *Service) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	sess, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}
