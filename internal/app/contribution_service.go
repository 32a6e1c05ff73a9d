package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

var (
	// ErrContributionNotFound indicates the contribution does not exist.
	ErrContributionNotFound = errors.New("contribution not found")
	// ErrNotContributionOwner indicates the caller does not own the
	// contribution.
	ErrNotContributionOwner = errors.New("not the contribution owner")
	// ErrInvalidTransition indicates a status change the lifecycle does
	// not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ContributionService manages community-submitted style guide changes and
// the administrative actions around them.
type ContributionService struct {
	contributions domain.ContributionRepository
	users         domain.UserRepository
	audit         domain.AuditLogRepository
	log           *logger.Logger
}

// NewContributionService creates a new contribution service.
func NewContributionService(contributions domain.ContributionRepository, users domain.UserRepository, audit domain.AuditLogRepository, log *logger.Logger) *ContributionService {
	return &ContributionService{contributions: contributions, users: users, audit: audit, log: log}
}

// CreateDraft stores a new draft contribution for the user.
func (s *ContributionService) CreateDraft(ctx context.Context, userID, title, filename, content string) (*domain.Contribution, error) {
	now := time.Now().UTC()
	c := &domain.Contribution{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Filename:  filename,
		Content:   content,
		Status:    domain.DefaultContributionStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.contributions.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateDraft replaces the title/filename/content of a draft owned by the
// user. Only drafts can be edited.
func (s *ContributionService) UpdateDraft(ctx context.Context, userID, id, title, filename, content string) (*domain.Contribution, error) {
	c, err := s.ownedContribution(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusDraft {
		return nil, ErrInvalidTransition
	}

	c.Title = title
	c.Filename = filename
	c.Content = content
	c.UpdatedAt = time.Now().UTC()
	if err := s.contributions.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Submit moves a draft into review.
func (s *ContributionService) Submit(ctx context.Context, userID, id string) (*domain.Contribution, error) {
	c, err := s.ownedContribution(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusDraft {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	c.Status = domain.StatusPending
	c.SubmittedAt = &now
	c.UpdatedAt = now
	if err := s.contributions.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListForUser returns the user's own contributions.
func (s *ContributionService) ListForUser(ctx context.Context, userID string) ([]*domain.Contribution, error) {
	return s.contributions.ListByUser(ctx, userID)
}

// ListPending returns contributions awaiting review.
func (s *ContributionService) ListPending(ctx context.Context) ([]*domain.Contribution, error) {
	return s.contributions.ListByStatus(ctx, domain.StatusPending)
}

// Review approves or rejects a pending contribution and records the action
// in the audit log.
func (s *ContributionService) Review(ctx context.Context, reviewer *domain.User, id string, approve bool, notes string) (*domain.Contribution, error) {
	c, err := s.contributions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContributionNotFound
	}
	if c.Status != domain.StatusPending {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	if approve {
		c.Status = domain.StatusApproved
	} else {
		c.Status = domain.StatusRejected
	}
	c.ReviewNotes = notes
	c.ReviewedAt = &now
	c.ReviewedBy = reviewer.ID
	c.UpdatedAt = now
	if err := s.contributions.Update(ctx, c); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, reviewer.ID, domain.AuditContributionReviewed, c.ID, map[string]string{
		"status": string(c.Status),
		"notes":  notes,
	})
	return c, nil
}

// SetUserBlocked blocks or unblocks a user and records the action.
func (s *ContributionService) SetUserBlocked(ctx context.Context, admin *domain.User, userID string, blocked bool) error {
	if err := s.users.SetBlocked(ctx, userID, blocked); err != nil {
		return err
	}

	action := domain.AuditUserBlocked
	if !blocked {
		action = domain.AuditUserUnblocked
	}
	s.appendAudit(ctx, admin.ID, action, userID, nil)
	return nil
}

// SetUserRole changes a user's role and records the action.
func (s *ContributionService) SetUserRole(ctx context.Context, admin *domain.User, userID string, role domain.Role) error {
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return err
	}
	s.appendAudit(ctx, admin.ID, domain.AuditRoleChanged, userID, map[string]string{"role": string(role)})
	return nil
}

func (s *ContributionService) ownedContribution(ctx context.Context, userID, id string) (*domain.Contribution, error) {
	c, err := s.contributions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContributionNotFound
	}
	if c.UserID != userID {
		return nil, ErrNotContributionOwner
	}
	return c, nil
}

func (s *ContributionService) appendAudit(ctx context.Context, actorID string, action domain.AuditAction, targetID string, details map[string]string) {
	err := s.audit.Append(ctx, &domain.AuditLog{
		ID:        uuid.NewString(),
		UserID:    actorID,
		Action:    action,
		TargetID:  targetID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		// Audit failures must not abort the action they describe.
		s.log.Error().Err(err).Str("action", string(action)).Msg("append audit log")
	}
}
