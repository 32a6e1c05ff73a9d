package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

var (
	// ErrInvalidToken indicates an unknown verification token.
	ErrInvalidToken = errors.New("invalid verification token")
	// ErrTokenExpired indicates the verification token has expired.
	ErrTokenExpired = errors.New("verification token has expired")
	// ErrTooManyAttempts indicates the attempt cap was reached.
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

// Verification policy.
const (
	VerificationTTL         = 24 * time.Hour
	MaxVerificationAttempts = 3
	VerificationCooldown    = 5 * time.Minute
)

// RateLimitedError is returned when a new verification email is requested
// within the cooldown window. WaitMinutes is the ceiling of the remaining
// cooldown.
type RateLimitedError struct {
	WaitMinutes int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("please wait %d minutes before requesting a new verification email", e.WaitMinutes)
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, toAddr, toName, subject, htmlBody, textBody string) error
}

// VerificationStatus is a read-only diagnostic of the verification state for
// an email address.
type VerificationStatus struct {
	HasToken          bool `json:"hasToken"`
	Attempts          int  `json:"attempts"`
	CooldownRemaining int  `json:"cooldownRemaining"`
}

// VerificationService manages email-verification tokens, their attempt
// limits, and the per-email request cooldown.
type VerificationService struct {
	tokens  domain.VerificationTokenStore
	limits  domain.RateLimitStore
	users   domain.UserRepository
	mailer  Mailer
	baseURL string
	log     *logger.Logger
}

// NewVerificationService creates a new verification service. mailer may be
// nil, in which case SendVerificationEmail only issues the token.
func NewVerificationService(tokens domain.VerificationTokenStore, limits domain.RateLimitStore, users domain.UserRepository, mailer Mailer, baseURL string, log *logger.Logger) *VerificationService {
	return &VerificationService{
		tokens:  tokens,
		limits:  limits,
		users:   users,
		mailer:  mailer,
		baseURL: baseURL,
		log:     log,
	}
}

// GenerateToken issues a fresh verification token for the user, enforcing
// the per-email cooldown and invalidating any prior tokens for the user.
func (s *VerificationService) GenerateToken(ctx context.Context, user *domain.User) (string, error) {
	rec, err := s.limits.Get(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if rec != nil {
		elapsed := time.Since(rec.LastAttempt)
		if elapsed < VerificationCooldown {
			remaining := (VerificationCooldown - elapsed).Minutes()
			return "", &RateLimitedError{WaitMinutes: int(math.Ceil(remaining))}
		}
	}

	if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
		return "", err
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	if err := s.tokens.Put(ctx, &domain.VerificationToken{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(VerificationTTL),
		Attempts:  0,
		CreatedAt: now,
	}); err != nil {
		return "", err
	}

	if err := s.limits.Record(ctx, user.Email, now); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateToken checks a verification token and returns the owning user id.
//
// Every call increments the attempt counter, including calls made purely to
// check validity, so repeated checks can themselves invalidate a token.
// This mirrors the original system's behavior and is intentional.
func (s *VerificationService) ValidateToken(ctx context.Context, token string) (string, error) {
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", ErrInvalidToken
	}

	if time.Now().After(t.ExpiresAt) {
		_ = s.tokens.Delete(ctx, token)
		return "", ErrTokenExpired
	}

	if t.Attempts >= MaxVerificationAttempts {
		_ = s.tokens.Delete(ctx, token)
		return "", ErrTooManyAttempts
	}

	if err := s.tokens.IncrementAttempts(ctx, token); err != nil {
		return "", err
	}
	return t.UserID, nil
}

// MarkEmailAsVerified consumes a token: on successful validation the token
// is deleted, the email's rate-limit record cleared, and the user flagged
// as verified.
func (s *VerificationService) MarkEmailAsVerified(ctx context.Context, token string) (string, error) {
	userID, err := s.ValidateToken(ctx, token)
	if err != nil {
		return "", err
	}

	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", ErrInvalidToken
	}

	if err := s.tokens.Delete(ctx, token); err != nil {
		return "", err
	}
	if err := s.limits.Delete(ctx, t.Email); err != nil {
		return "", err
	}

	if err := s.users.SetEmailVerified(ctx, userID, true); err != nil {
		// The token is already consumed; log and report the user update
		// failure to the caller.
		s.log.Error().Err(err).Str("user", userID).Msg("mark email verified")
		return "", err
	}
	return userID, nil
}

// NeedsEmailVerification reports whether the user must verify their email.
// OAuth providers verify email addresses by construction.
func (s *VerificationService) NeedsEmailVerification(user *domain.User) bool {
	if user.Provider == domain.ProviderGoogle || user.Provider == domain.ProviderGitHub {
		return false
	}
	return !user.EmailVerified
}

// CleanupExpiredTokens sweeps expired verification tokens and drops
// rate-limit records idle for more than 24 hours. Returns the count of
// tokens removed.
func (s *VerificationService) CleanupExpiredTokens(ctx context.Context) (int, error) {
	now := time.Now()
	removed, err := s.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if _, err := s.limits.DeleteIdle(ctx, now.Add(-24*time.Hour)); err != nil {
		return removed, err
	}
	return removed, nil
}

// Status returns the verification diagnostic for an email address.
func (s *VerificationService) Status(ctx context.Context, email string) (VerificationStatus, error) {
	var st VerificationStatus

	hasToken, err := s.tokens.HasTokenForEmail(ctx, email)
	if err != nil {
		return st, err
	}
	st.HasToken = hasToken

	rec, err := s.limits.Get(ctx, email)
	if err != nil {
		return st, err
	}
	if rec != nil {
		st.Attempts = rec.Count
		remaining := VerificationCooldown - time.Since(rec.LastAttempt)
		if remaining > 0 {
			st.CooldownRemaining = int(math.Ceil(remaining.Minutes()))
		}
	}
	return st, nil
}

// SendVerificationEmail issues a token and emails the verification link to
// the user. Rate-limit failures propagate so callers can surface the wait
// hint.
func (s *VerificationService) SendVerificationEmail(ctx context.Context, user *domain.User) error {
	token, err := s.GenerateToken(ctx, user)
	if err != nil {
		return err
	}

	if s.mailer == nil {
		s.log.Warn().Str("user", user.ID).Msg("no mailer configured, verification token issued without email")
		return nil
	}

	verifyURL := fmt.Sprintf("%s/api/auth/verify-email?token=%s", s.baseURL, token)
	subject, html, text := ComposeVerificationEmail(user.Name, verifyURL)
	if err := s.mailer.Send(ctx, user.Email, user.Name, subject, html, text); err != nil {
		s.log.Error().Err(err).Str("user", user.ID).Msg("send verification email")
		return err
	}
	return nil
}
