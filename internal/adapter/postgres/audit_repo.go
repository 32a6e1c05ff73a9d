package postgres

import (
	"context"
	"encoding/json"

	"styleguides/internal/domain"
)

// AuditRepo implements domain.AuditLogRepository on DB.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo wraps a DB as an AuditLogRepository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

var _ domain.AuditLogRepository = (*AuditRepo)(nil)

// Append inserts an audit log entry. Details are stored as JSONB.
func (r *AuditRepo) Append(ctx context.Context, entry *domain.AuditLog) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return err
		}
	}

	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO audit_logs (id, user_id, action, target_id, details, ip_address, user_agent, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		entry.ID, entry.UserID, entry.Action, entry.TargetID, details, entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	)
	return err
}

// ListRecent returns the most recent entries, newest first.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.sql.QueryContext(ctx,
		"SELECT id, user_id, action, target_id, details, ip_address, user_agent, created_at FROM audit_logs ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.TargetID, &details, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				entry.Details = nil
			}
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}
