package domain

import (
	"context"
	"time"
)

// Session binds an opaque browser-held token to an authenticated user.
// Expired sessions are inert: stores must treat them as absent even while
// the entry is still physically present.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	CSRFToken string
}

// VerificationToken is a one-time opaque value proving control of an email
// address. At most one live token exists per user; the attempt counter is
// capped before the token is considered invalid.
type VerificationToken struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}

// RateLimitRecord tracks verification-request cadence per email address.
type RateLimitRecord struct {
	Count       int
	LastAttempt time.Time
}

// SessionStore defines the port for session persistence. Lookups return
// (nil, nil) when the session is absent.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	SetCSRFToken(ctx context.Context, id, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// VerificationTokenStore defines the port for pending email verifications.
type VerificationTokenStore interface {
	Put(ctx context.Context, t *VerificationToken) error
	Get(ctx context.Context, token string) (*VerificationToken, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
	IncrementAttempts(ctx context.Context, token string) error
	HasTokenForEmail(ctx context.Context, email string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// RateLimitStore defines the port for verification-request rate limiting.
type RateLimitStore interface {
	Get(ctx context.Context, email string) (*RateLimitRecord, error)
	Record(ctx context.Context, email string, at time.Time) error
	Delete(ctx context.Context, email string) error
	DeleteIdle(ctx context.Context, olderThan time.Time) (int, error)
}
