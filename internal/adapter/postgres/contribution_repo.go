package postgres

import (
	"context"
	"database/sql"

	"styleguides/internal/domain"
)

const contributionColumns = "id, user_id, title, filename, content, status, pr_number, pr_url, branch, review_notes, created_at, updated_at, submitted_at, reviewed_at, reviewed_by"

// ContributionRepo implements domain.ContributionRepository on DB.
type ContributionRepo struct {
	db *DB
}

// NewContributionRepo wraps a DB as a ContributionRepository.
func NewContributionRepo(db *DB) *ContributionRepo {
	return &ContributionRepo{db: db}
}

var _ domain.ContributionRepository = (*ContributionRepo)(nil)

// Create inserts a new contribution.
func (r *ContributionRepo) Create(ctx context.Context, c *domain.Contribution) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO contributions (id, user_id, title, filename, content, status, pr_number, pr_url, branch, review_notes, created_at, updated_at, submitted_at, reviewed_at, reviewed_by) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)",
		c.ID, c.UserID, c.Title, c.Filename, c.Content, c.Status, c.PRNumber, c.PRURL, c.Branch, c.ReviewNotes, c.CreatedAt, c.UpdatedAt, c.SubmittedAt, c.ReviewedAt, c.ReviewedBy,
	)
	return err
}

// GetByID retrieves a contribution by id.
func (r *ContributionRepo) GetByID(ctx context.Context, id string) (*domain.Contribution, error) {
	var c domain.Contribution
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT "+contributionColumns+" FROM contributions WHERE id = $1", id,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.Filename, &c.Content, &c.Status, &c.PRNumber, &c.PRURL, &c.Branch, &c.ReviewNotes, &c.CreatedAt, &c.UpdatedAt, &c.SubmittedAt, &c.ReviewedAt, &c.ReviewedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByUser returns the user's contributions, newest first.
func (r *ContributionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Contribution, error) {
	return r.list(ctx,
		"SELECT "+contributionColumns+" FROM contributions WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

// ListByStatus returns contributions in the given state, oldest first so
// reviewers see the longest-waiting submissions on top.
func (r *ContributionRepo) ListByStatus(ctx context.Context, status domain.ContributionStatus) ([]*domain.Contribution, error) {
	return r.list(ctx,
		"SELECT "+contributionColumns+" FROM contributions WHERE status = $1 ORDER BY submitted_at NULLS LAST, created_at", status)
}

// Update rewrites all mutable fields of a contribution.
func (r *ContributionRepo) Update(ctx context.Context, c *domain.Contribution) error {
	_, err := r.db.sql.ExecContext(ctx,
		"UPDATE contributions SET title = $1, filename = $2, content = $3, status = $4, pr_number = $5, pr_url = $6, branch = $7, review_notes = $8, updated_at = $9, submitted_at = $10, reviewed_at = $11, reviewed_by = $12 WHERE id = $13",
		c.Title, c.Filename, c.Content, c.Status, c.PRNumber, c.PRURL, c.Branch, c.ReviewNotes, c.UpdatedAt, c.SubmittedAt, c.ReviewedAt, c.ReviewedBy, c.ID,
	)
	return err
}

func (r *ContributionRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Contribution, error) {
	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Contribution
	for rows.Next() {
		var c domain.Contribution
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Filename, &c.Content, &c.Status, &c.PRNumber, &c.PRURL, &c.Branch, &c.ReviewNotes, &c.CreatedAt, &c.UpdatedAt, &c.SubmittedAt, &c.ReviewedAt, &c.ReviewedBy); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
