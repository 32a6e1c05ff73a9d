package postgres

import (
	"context"
	"database/sql"
	"time"

	"styleguides/internal/domain"
)

const userColumns = "id, email, name, provider, role, blocked, email_verified, created_at, updated_at"

// UserRepo implements domain.UserRepository on DB.
type UserRepo struct {
	db *DB
}

// NewUserRepo wraps a DB as a UserRepository.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Provider, &u.Role, &u.Blocked, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO users (id, email, name, provider, role, blocked, email_verified, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		u.ID, u.Email, u.Name, u.Provider, u.Role, u.Blocked, u.EmailVerified, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// SetEmailVerified updates a user's email verification flag.
func (r *UserRepo) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	_, err := r.db.sql.ExecContext(ctx,
		"UPDATE users SET email_verified = $1, updated_at = $2 WHERE id = $3",
		verified, time.Now(), id,
	)
	return err
}

// SetBlocked updates a user's blocked flag.
func (r *UserRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	_, err := r.db.sql.ExecContext(ctx,
		"UPDATE users SET blocked = $1, updated_at = $2 WHERE id = $3",
		blocked, time.Now(), id,
	)
	return err
}

// SetRole updates a user's role.
func (r *UserRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	_, err := r.db.sql.ExecContext(ctx,
		"UPDATE users SET role = $1, updated_at = $2 WHERE id = $3",
		role, time.Now(), id,
	)
	return err
}

// List returns all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Provider, &u.Role, &u.Blocked, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
