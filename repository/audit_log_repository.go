package repository

import (
	"context"
	"fmt"

	"advancer/database"
	"advancer/models"
)

// AuditLogRepository implements the AuditLogRepository interface over the
// append-only audit_events table
type AuditLogRepository struct {
	q queryable
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{q: db.Pool}
}

// newAuditLogRepositoryWithTx creates a new audit log repository with a transaction
func newAuditLogRepositoryWithTx(tx queryable) *AuditLogRepository {
	return &AuditLogRepository{q: tx}
}

// Create appends an audit event
func (r *AuditLogRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (subject_id, event_name, event_key, extra)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		event.SubjectID,
		event.EventName,
		event.EventKey,
		event.Extra,
	).Scan(&event.ID, &event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create audit event %s for subject %d: %w", event.EventName, event.SubjectID, err)
	}

	return nil
}

// GetBySubject returns audit events for a subject, newest first
func (r *AuditLogRepository) GetBySubject(ctx context.Context, subjectID int64, limit int) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, subject_id, event_name, event_key, extra, created_at
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit events for subject %d: %w", subjectID, err)
	}
	defer rows.Close()

	var auditEvents []*models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		err := rows.Scan(
			&event.ID,
			&event.SubjectID,
			&event.EventName,
			&event.EventKey,
			&event.Extra,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		auditEvents = append(auditEvents, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}

	return auditEvents, nil
}
