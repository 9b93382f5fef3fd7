package service

import (
	"context"
	"time"

	"advancer/events"
	"advancer/models"
)

// ApprovalRepository defines the data access the pipeline needs on
// advance approvals. Approvals are owned elsewhere; this core only reads
// them and rewrites default_payback_date.
type ApprovalRepository interface {
	// GetByID retrieves an approval, nil if not found
	GetByID(ctx context.Context, id int64) (*models.AdvanceApproval, error)

	// Create inserts a new approval (used by seeding and tests)
	Create(ctx context.Context, approval *models.AdvanceApproval) error

	// UpdateDefaultPaybackDate rewrites the approval's payback date
	UpdateDefaultPaybackDate(ctx context.Context, id int64, date time.Time) error
}

// PredictionRepository defines the interface for payback prediction rows
type PredictionRepository interface {
	// CreateBatch inserts one row per scored candidate of an oracle call
	CreateBatch(ctx context.Context, predictions []*models.PaybackPrediction) error

	// GetLastSuccessful returns the newest row marked success for an
	// approval, nil if none exists
	GetLastSuccessful(ctx context.Context, approvalID int64) (*models.PaybackPrediction, error)

	// GetByApproval returns all rows for an approval, newest first
	GetByApproval(ctx context.Context, approvalID int64) ([]*models.PaybackPrediction, error)
}

// AuditLogRepository defines the append-only audit trail
type AuditLogRepository interface {
	// Create appends an audit event
	Create(ctx context.Context, event *models.AuditEvent) error

	// GetBySubject returns audit events for a subject, newest first
	GetBySubject(ctx context.Context, subjectID int64, limit int) ([]*models.AuditEvent, error)
}

// CounterRepository defines the named rollout counters. Increment must be
// an atomic add at the storage layer; it is the only mutation concurrent
// requests perform on a shared counter.
type CounterRepository interface {
	// Get returns the current value, 0 if the counter was never set
	Get(ctx context.Context, name string) (int64, error)

	// Increment atomically adds amount
	Increment(ctx context.Context, name string, amount int64) error

	// Reset removes the counter
	Reset(ctx context.Context, name string) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// PredictionService orchestrates oracle calls over a candidate date window
type PredictionService interface {
	// Predict asks the oracle to score the candidate window and selects a
	// date by strategy. A nil date with a nil error means the machinery
	// had no opinion (disabled model, oracle failure, nothing qualified).
	Predict(ctx context.Context, input PredictionInput) (*time.Time, error)

	// GetLastSuccessfulPrediction returns the date of the stored
	// prediction marked successful for the approval, nil if none
	GetLastSuccessfulPrediction(ctx context.Context, approvalID int64) (*time.Time, error)
}

// PaybackService composes the calendar, experiments and predictions into
// the final payback date decision for an approval
type PaybackService interface {
	// ConditionallyAdjustPaybackDate runs the payback-date pipeline for an
	// approval. Side effects only happen for a real trigger; every failure
	// path falls back to the approval's existing date.
	ConditionallyAdjustPaybackDate(ctx context.Context, approval *models.AdvanceApproval, trigger models.Trigger) (*models.AdvanceApproval, error)

	// AvailableDatesForNoIncome returns the banking days of the payback
	// window merged with the approval's stored successful prediction
	AvailableDatesForNoIncome(ctx context.Context, approvalID int64, now time.Time) ([]time.Time, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	ApprovalRepository() ApprovalRepository
	PredictionRepository() PredictionRepository
	AuditLogRepository() AuditLogRepository
	CounterRepository() CounterRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
