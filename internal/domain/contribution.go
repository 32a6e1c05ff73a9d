package domain

import (
	"context"
	"time"
)

// ContributionStatus tracks a community contribution through review.
type ContributionStatus string

// Contribution lifecycle states.
const (
	StatusDraft    ContributionStatus = "draft"
	StatusPending  ContributionStatus = "pending"
	StatusApproved ContributionStatus = "approved"
	StatusRejected ContributionStatus = "rejected"
)

// DefaultContributionStatus is the state of a freshly created contribution.
const DefaultContributionStatus = StatusDraft

// ValidStatus reports whether s names a known contribution status.
func ValidStatus(s string) bool {
	switch ContributionStatus(s) {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Contribution is a community-submitted style guide change.
type Contribution struct {
	ID          string
	UserID      string
	Title       string
	Filename    string
	Content     string
	Status      ContributionStatus
	PRNumber    int
	PRURL       string
	Branch      string
	ReviewNotes string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
	ReviewedBy  string
}

// AuditAction names a recorded administrative action.
type AuditAction string

// Audited administrative actions.
const (
	AuditUserBlocked          AuditAction = "user_blocked"
	AuditUserUnblocked        AuditAction = "user_unblocked"
	AuditRoleChanged          AuditAction = "role_changed"
	AuditContributionReviewed AuditAction = "contribution_reviewed"
)

// AuditLog records who did what to whom.
type AuditLog struct {
	ID        string
	UserID    string
	Action    AuditAction
	TargetID  string
	Details   map[string]string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// ContributionRepository defines the port for contribution persistence.
type ContributionRepository interface {
	Create(ctx context.Context, c *Contribution) error
	GetByID(ctx context.Context, id string) (*Contribution, error)
	ListByUser(ctx context.Context, userID string) ([]*Contribution, error)
	ListByStatus(ctx context.Context, status ContributionStatus) ([]*Contribution, error)
	Update(ctx context.Context, c *Contribution) error
}

// AuditLogRepository defines the port for audit log persistence.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]*AuditLog, error)
}
