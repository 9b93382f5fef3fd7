package models

import (
	"time"
)

// AuditEvent is an append-only record written for experiment assignments
// and payback-date adjustments, consumed later for analysis and model
// training feedback.
type AuditEvent struct {
	ID        int64          `db:"id"`
	SubjectID int64          `db:"subject_id"`
	EventName string         `db:"event_name"`
	EventKey  *string        `db:"event_key"`
	Extra     map[string]any `db:"extra"`
	CreatedAt time.Time      `db:"created_at"`
}
