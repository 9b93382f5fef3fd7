package repository

import (
	"context"
	"fmt"
	"time"

	"advancer/database"
	"advancer/models"

	"github.com/jackc/pgx/v5"
)

// ApprovalRepository implements the ApprovalRepository interface
type ApprovalRepository struct {
	q queryable
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *database.DB) *ApprovalRepository {
	return &ApprovalRepository{q: db.Pool}
}

// newApprovalRepositoryWithTx creates a new approval repository with a transaction
func newApprovalRepositoryWithTx(tx queryable) *ApprovalRepository {
	return &ApprovalRepository{q: tx}
}

// GetByID retrieves an approval by its ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id int64) (*models.AdvanceApproval, error) {
	query := `
		SELECT id, user_id, bank_account_id, amount, micro_advance_approved,
		       income_valid, default_payback_date, created_at, updated_at
		FROM advance_approvals
		WHERE id = $1
	`

	var approval models.AdvanceApproval
	err := r.q.QueryRow(ctx, query, id).Scan(
		&approval.ID,
		&approval.UserID,
		&approval.BankAccountID,
		&approval.Amount,
		&approval.MicroAdvanceApproved,
		&approval.IncomeValid,
		&approval.DefaultPaybackDate,
		&approval.CreatedAt,
		&approval.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval %d: %w", id, err)
	}

	return &approval, nil
}

// Create inserts a new approval
func (r *ApprovalRepository) Create(ctx context.Context, approval *models.AdvanceApproval) error {
	query := `
		INSERT INTO advance_approvals
			(user_id, bank_account_id, amount, micro_advance_approved, income_valid, default_payback_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		approval.UserID,
		approval.BankAccountID,
		approval.Amount,
		approval.MicroAdvanceApproved,
		approval.IncomeValid,
		approval.DefaultPaybackDate,
	).Scan(&approval.ID, &approval.CreatedAt, &approval.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create approval for user %d: %w", approval.UserID, err)
	}

	return nil
}

// UpdateDefaultPaybackDate rewrites the approval's payback date
func (r *ApprovalRepository) UpdateDefaultPaybackDate(ctx context.Context, id int64, date time.Time) error {
	query := `
		UPDATE advance_approvals
		SET default_payback_date = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, date, id)
	if err != nil {
		return fmt.Errorf("failed to update payback date for approval %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("approval %d not found", id)
	}

	return nil
}
