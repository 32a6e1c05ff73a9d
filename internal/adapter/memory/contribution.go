package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"styleguides/internal/domain"
)

// ContributionDB keeps contributions and audit logs in memory. Used in
// development when no database is configured, and in tests.
type ContributionDB struct {
	mu            sync.Mutex
	contributions map[string]*domain.Contribution
	auditLogs     []*domain.AuditLog
}

// NewContributionDB creates an empty in-memory contribution store.
func NewContributionDB() *ContributionDB {
	return &ContributionDB{contributions: make(map[string]*domain.Contribution)}
}

var _ domain.ContributionRepository = (*ContributionRepo)(nil)
var _ domain.AuditLogRepository = (*AuditRepo)(nil)

// ContributionRepo implements contribution persistence on ContributionDB.
type ContributionRepo struct {
	db *ContributionDB
}

// Contributions returns the contribution repository view.
func (db *ContributionDB) Contributions() *ContributionRepo {
	return &ContributionRepo{db: db}
}

// Create stores a new contribution.
func (r *ContributionRepo) Create(ctx context.Context, c *domain.Contribution) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.contributions[c.ID]; ok {
		return errors.New("contribution already exists")
	}
	cp := *c
	r.db.contributions[c.ID] = &cp
	return nil
}

// GetByID returns a contribution by id, or nil.
func (r *ContributionRepo) GetByID(ctx context.Context, id string) (*domain.Contribution, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.contributions[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// ListByUser returns the user's contributions, newest first.
func (r *ContributionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Contribution, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*domain.Contribution
	for _, c := range r.db.contributions {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListByStatus returns contributions in the given state, oldest first.
func (r *ContributionRepo) ListByStatus(ctx context.Context, status domain.ContributionStatus) ([]*domain.Contribution, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*domain.Contribution
	for _, c := range r.db.contributions {
		if c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update replaces a stored contribution.
func (r *ContributionRepo) Update(ctx context.Context, c *domain.Contribution) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.contributions[c.ID]; !ok {
		return errors.New("contribution not found")
	}
	cp := *c
	r.db.contributions[c.ID] = &cp
	return nil
}

// AuditRepo implements audit-log persistence on ContributionDB.
type AuditRepo struct {
	db *ContributionDB
}

// AuditLogs returns the audit-log repository view.
func (db *ContributionDB) AuditLogs() *AuditRepo {
	return &AuditRepo{db: db}
}

// Append stores an audit log entry.
func (r *AuditRepo) Append(ctx context.Context, entry *domain.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := *entry
	r.db.auditLogs = append(r.db.auditLogs, &cp)
	return nil
}

// ListRecent returns the most recent entries, newest first.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if limit <= 0 || limit > len(r.db.auditLogs) {
		limit = len(r.db.auditLogs)
	}

	out := make([]*domain.AuditLog, 0, limit)
	for i := len(r.db.auditLogs) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.db.auditLogs[i]
		out = append(out, &cp)
	}
	return out, nil
}
