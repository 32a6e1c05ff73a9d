// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"

	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

var (
	// ErrSessionNotFound indicates that the session does not exist or has
	// expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserBlocked indicates that the account has been blocked.
	ErrUserBlocked = errors.New("account blocked")
)

// SessionTTL is how long a session stays valid without a refresh.
const SessionTTL = 30 * 24 * time.Hour

// SessionService manages browser sessions and CSRF tokens.
type SessionService struct {
	sessions domain.SessionStore
	users    domain.UserRepository
	log      *logger.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(sessions domain.SessionStore, users domain.UserRepository, log *logger.Logger) *SessionService {
	return &SessionService{sessions: sessions, users: users, log: log}
}

// CreateSession generates a fresh opaque session id for the user and stores
// it with expiry now+TTL. Returns the id.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User) (string, error) {
	id, err := generateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	sess := &domain.Session{
		ID:        id,
		UserID:    user.ID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", err
	}
	return id, nil
}

// GetSession looks up a session by id. Expired or absent sessions yield
// ErrSessionNotFound; the store removes expired entries on access.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// CurrentUser resolves a session id to its owning user. Blocked users are
// rejected with ErrUserBlocked.
func (s *SessionService) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}
	return user, nil
}

// DeleteSession removes a session. Idempotent.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// RefreshSession extends a session's expiry to now+TTL.
func (s *SessionService) RefreshSession(ctx context.Context, id string) error {
	ok, err := s.sessions.UpdateExpiry(ctx, id, time.Now().Add(SessionTTL))
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// GenerateCSRFToken returns a fresh opaque token. Pure; no store interaction.
func (s *SessionService) GenerateCSRFToken() (string, error) {
	return generateToken()
}

// StoreCSRFToken attaches a CSRF token to the session.
func (s *SessionService) StoreCSRFToken(ctx context.Context, sessionID, token string) error {
	return s.sessions.SetCSRFToken(ctx, sessionID, token)
}

// ValidateCSRFToken reports whether the token matches the one stored on the
// session. Absent sessions and mismatches both fail.
func (s *SessionService) ValidateCSRFToken(ctx context.Context, sessionID, token string) bool {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil || sess == nil {
		return false
	}
	if sess.CSRFToken == "" || token == "" {
		return false
	}
	return constantTimeCompare(sess.CSRFToken, token)
}

// CleanupExpiredSessions sweeps the store and returns the count removed.
// Intended to run periodically out-of-band.
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	n, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int("removed", n).Msg("expired sessions swept")
	}
	return n, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
