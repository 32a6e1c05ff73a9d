// Package memory implements in-memory stores for ephemeral authentication
// state. Sessions, verification tokens and rate-limit records live only in
// process memory; users are kept here too for development and testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"styleguides/internal/domain"
)

// DB holds all in-memory state behind a single mutex so every operation is
// one read-modify-write critical section.
type DB struct {
	mu         sync.Mutex
	sessions   map[string]*domain.Session
	tokens     map[string]*domain.VerificationToken
	rateLimits map[string]*domain.RateLimitRecord
	users      map[string]*domain.User
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		sessions:   make(map[string]*domain.Session),
		tokens:     make(map[string]*domain.VerificationToken),
		rateLimits: make(map[string]*domain.RateLimitRecord),
		users:      make(map[string]*domain.User),
	}
}

// Ensure interfaces are met.
var _ domain.SessionStore = (*SessionStore)(nil)
var _ domain.VerificationTokenStore = (*TokenStore)(nil)
var _ domain.RateLimitStore = (*RateLimitStore)(nil)
var _ domain.UserRepository = (*UserRepo)(nil)

// Reset drops all stored state. Intended for tests.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.sessions = make(map[string]*domain.Session)
	db.tokens = make(map[string]*domain.VerificationToken)
	db.rateLimits = make(map[string]*domain.RateLimitRecord)
	db.users = make(map[string]*domain.User)
}

// --- SessionStore ---

// SessionStore implements session persistence on DB.
type SessionStore struct {
	db *DB
}

// Sessions returns the session store view of the database.
func (db *DB) Sessions() *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a session keyed by its id.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *sess
	s.db.sessions[sess.ID] = &cp
	return nil
}

// Get returns a session by id. An expired session is deleted as a side
// effect and reported as absent.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sess, ok := s.db.sessions[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(s.db.sessions, id)
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.sessions, id)
	return nil
}

// UpdateExpiry sets a new expiry for the session, reporting whether it was
// found.
func (s *SessionStore) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sess, ok := s.db.sessions[id]
	if !ok {
		return false, nil
	}
	sess.ExpiresAt = expiresAt
	return true, nil
}

// SetCSRFToken attaches a CSRF token to the session if it exists.
func (s *SessionStore) SetCSRFToken(ctx context.Context, id, token string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if sess, ok := s.db.sessions[id]; ok {
		sess.CSRFToken = token
	}
	return nil
}

// DeleteExpired sweeps all expired sessions and returns the count removed.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	removed := 0
	for id, sess := range s.db.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.db.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// --- VerificationTokenStore ---

// TokenStore implements verification-token persistence on DB.
type TokenStore struct {
	db *DB
}

// Tokens returns the verification-token store view of the database.
func (db *DB) Tokens() *TokenStore {
	return &TokenStore{db: db}
}

// Put stores a verification token keyed by its token value.
func (t *TokenStore) Put(ctx context.Context, tok *domain.VerificationToken) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	cp := *tok
	t.db.tokens[tok.Token] = &cp
	return nil
}

// Get returns a verification token, or nil when absent.
func (t *TokenStore) Get(ctx context.Context, token string) (*domain.VerificationToken, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	tok, ok := t.db.tokens[token]
	if !ok {
		return nil, nil
	}
	cp := *tok
	return &cp, nil
}

// Delete removes a verification token.
func (t *TokenStore) Delete(ctx context.Context, token string) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	delete(t.db.tokens, token)
	return nil
}

// DeleteByUser removes every token owned by the given user id.
func (t *TokenStore) DeleteByUser(ctx context.Context, userID string) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for k, tok := range t.db.tokens {
		if tok.UserID == userID {
			delete(t.db.tokens, k)
		}
	}
	return nil
}

// IncrementAttempts bumps the attempt counter for a token.
func (t *TokenStore) IncrementAttempts(ctx context.Context, token string) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	tok, ok := t.db.tokens[token]
	if !ok {
		return errors.New("token not found")
	}
	tok.Attempts++
	return nil
}

// HasTokenForEmail reports whether any token exists for the given email.
func (t *TokenStore) HasTokenForEmail(ctx context.Context, email string) (bool, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	for _, tok := range t.db.tokens {
		if tok.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// DeleteExpired sweeps expired verification tokens and returns the count
// removed.
func (t *TokenStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	removed := 0
	for k, tok := range t.db.tokens {
		if now.After(tok.ExpiresAt) {
			delete(t.db.tokens, k)
			removed++
		}
	}
	return removed, nil
}

// --- RateLimitStore ---

// RateLimitStore implements rate-limit persistence on DB.
type RateLimitStore struct {
	db *DB
}

// RateLimits returns the rate-limit store view of the database.
func (db *DB) RateLimits() *RateLimitStore {
	return &RateLimitStore{db: db}
}

// Get returns the rate-limit record for an email, or nil.
func (r *RateLimitStore) Get(ctx context.Context, email string) (*domain.RateLimitRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec, ok := r.db.rateLimits[email]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Record increments the attempt count for an email and stamps the time.
func (r *RateLimitStore) Record(ctx context.Context, email string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rec, ok := r.db.rateLimits[email]
	if !ok {
		r.db.rateLimits[email] = &domain.RateLimitRecord{Count: 1, LastAttempt: at}
		return nil
	}
	rec.Count++
	rec.LastAttempt = at
	return nil
}

// Delete clears the record for an email.
func (r *RateLimitStore) Delete(ctx context.Context, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.rateLimits, email)
	return nil
}

// DeleteIdle drops rate-limit records whose last attempt predates olderThan.
func (r *RateLimitStore) DeleteIdle(ctx context.Context, olderThan time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	removed := 0
	for email, rec := range r.db.rateLimits {
		if rec.LastAttempt.Before(olderThan) {
			delete(r.db.rateLimits, email)
			removed++
		}
	}
	return removed, nil
}

// --- UserRepository ---

// UserRepo implements user persistence on DB.
type UserRepo struct {
	db *DB
}

// Users returns the user repository view of the database.
func (db *DB) Users() *UserRepo {
	return &UserRepo{db: db}
}

// GetByID retrieves a user by id.
func (u *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	usr, ok := u.db.users[id]
	if !ok {
		return nil, nil
	}
	cp := *usr
	return &cp, nil
}

// GetByEmail retrieves a user by email.
func (u *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	for _, usr := range u.db.users {
		if usr.Email == email {
			cp := *usr
			return &cp, nil
		}
	}
	return nil, nil
}

// Create stores a new user.
func (u *UserRepo) Create(ctx context.Context, usr *domain.User) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	if _, ok := u.db.users[usr.ID]; ok {
		return errors.New("user already exists")
	}
	cp := *usr
	u.db.users[usr.ID] = &cp
	return nil
}

// SetEmailVerified flips the verified flag for a user.
func (u *UserRepo) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	usr, ok := u.db.users[id]
	if !ok {
		return errors.New("user not found")
	}
	usr.EmailVerified = verified
	usr.UpdatedAt = time.Now().UTC()
	return nil
}

// SetBlocked flips the blocked flag for a user.
func (u *UserRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	usr, ok := u.db.users[id]
	if !ok {
		return errors.New("user not found")
	}
	usr.Blocked = blocked
	usr.UpdatedAt = time.Now().UTC()
	return nil
}

// SetRole updates a user's role.
func (u *UserRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	usr, ok := u.db.users[id]
	if !ok {
		return errors.New("user not found")
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns all users.
func (u *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	out := make([]*domain.User, 0, len(u.db.users))
	for _, usr := range u.db.users {
		cp := *usr
		out = append(out, &cp)
	}
	return out, nil
}
