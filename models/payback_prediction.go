package models

import (
	"time"
)

// SelectionStrategy is the rule used to pick one date among scored candidates
type SelectionStrategy string

const (
	// StrategyEarliestOverThreshold picks the earliest candidate whose score
	// strictly exceeds the model's score limit
	StrategyEarliestOverThreshold SelectionStrategy = "earliest_over_threshold"

	// StrategyMostProbable picks the highest-scoring candidate
	StrategyMostProbable SelectionStrategy = "most_probable"
)

// ModelType identifies which scoring model produced a prediction
type ModelType string

const (
	ModelTypeTinyMoney     ModelType = "tiny_money"
	ModelTypeGlobalPayback ModelType = "global_payback_date"
)

// PaybackPrediction is one candidate date scored by a single oracle call.
// Rows are written once per candidate and never mutated; Success is true
// only for the candidate that was chosen.
type PaybackPrediction struct {
	ID                int64             `db:"id"`
	AdvanceApprovalID int64             `db:"advance_approval_id"`
	PredictedDate     time.Time         `db:"predicted_date"`
	Score             float64           `db:"score"`
	Success           bool              `db:"success"`
	ModelType         ModelType         `db:"model_type"`
	ScoreThreshold    float64           `db:"score_threshold"`
	OracleVersion     string            `db:"oracle_version"`
	SelectionStrategy SelectionStrategy `db:"selection_strategy"`
	CreatedAt         time.Time         `db:"created_at"`
}
