package repository

import (
	"context"
	"fmt"

	"advancer/database"
	"advancer/models"

	"github.com/jackc/pgx/v5"
)

// PredictionRepository implements the PredictionRepository interface.
// Rows are written once per oracle candidate and never updated or
// deleted by this core.
type PredictionRepository struct {
	q queryable
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *database.DB) *PredictionRepository {
	return &PredictionRepository{q: db.Pool}
}

// newPredictionRepositoryWithTx creates a new prediction repository with a transaction
func newPredictionRepositoryWithTx(tx queryable) *PredictionRepository {
	return &PredictionRepository{q: tx}
}

// CreateBatch inserts one row per scored candidate of a single oracle call
func (r *PredictionRepository) CreateBatch(ctx context.Context, predictions []*models.PaybackPrediction) error {
	if len(predictions) == 0 {
		return nil
	}

	query := `
		INSERT INTO payback_predictions
			(advance_approval_id, predicted_date, score, success, model_type,
			 score_threshold, oracle_version, selection_strategy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	batch := &pgx.Batch{}
	for _, p := range predictions {
		batch.Queue(query,
			p.AdvanceApprovalID,
			p.PredictedDate,
			p.Score,
			p.Success,
			p.ModelType,
			p.ScoreThreshold,
			p.OracleVersion,
			p.SelectionStrategy,
		)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for _, p := range predictions {
		if err := results.QueryRow().Scan(&p.ID, &p.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert prediction for approval %d: %w", p.AdvanceApprovalID, err)
		}
	}

	return nil
}

// GetLastSuccessful returns the newest row marked success for an approval
func (r *PredictionRepository) GetLastSuccessful(ctx context.Context, approvalID int64) (*models.PaybackPrediction, error) {
	query := `
		SELECT id, advance_approval_id, predicted_date, score, success, model_type,
		       score_threshold, oracle_version, selection_strategy, created_at
		FROM payback_predictions
		WHERE advance_approval_id = $1 AND success
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var p models.PaybackPrediction
	err := r.q.QueryRow(ctx, query, approvalID).Scan(
		&p.ID,
		&p.AdvanceApprovalID,
		&p.PredictedDate,
		&p.Score,
		&p.Success,
		&p.ModelType,
		&p.ScoreThreshold,
		&p.OracleVersion,
		&p.SelectionStrategy,
		&p.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last successful prediction for approval %d: %w", approvalID, err)
	}

	return &p, nil
}

// GetByApproval returns all prediction rows for an approval, newest first
func (r *PredictionRepository) GetByApproval(ctx context.Context, approvalID int64) ([]*models.PaybackPrediction, error) {
	query := `
		SELECT id, advance_approval_id, predicted_date, score, success, model_type,
		       score_threshold, oracle_version, selection_strategy, created_at
		FROM payback_predictions
		WHERE advance_approval_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get predictions for approval %d: %w", approvalID, err)
	}
	defer rows.Close()

	var predictions []*models.PaybackPrediction
	for rows.Next() {
		var p models.PaybackPrediction
		err := rows.Scan(
			&p.ID,
			&p.AdvanceApprovalID,
			&p.PredictedDate,
			&p.Score,
			&p.Success,
			&p.ModelType,
			&p.ScoreThreshold,
			&p.OracleVersion,
			&p.SelectionStrategy,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}

	return predictions, nil
}
