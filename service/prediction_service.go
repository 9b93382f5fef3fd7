package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"advancer/banking"
	"advancer/events"
	"advancer/experiment"
	"advancer/models"
	"advancer/observability"
	"advancer/oracle"

	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// ModelConfig carries the settings of one scoring model. Enabled gates
// the oracle call entirely; ScoreLimit is the threshold the
// earliest-over-threshold strategy selects against.
type ModelConfig struct {
	Enabled       bool
	ModelType     models.ModelType
	ScoreLimit    float64
	OracleVersion string
}

// PredictionInput identifies which approval to predict for and how.
// A nil Strategy is resolved through the selection-strategy experiment.
type PredictionInput struct {
	ApprovalID    int64
	UserID        int64
	BankAccountID int64
	Strategy      *models.SelectionStrategy
	Model         ModelConfig
}

// OracleClient is the scoring oracle contract the orchestrator consumes
type OracleClient interface {
	ScorePaybackDates(ctx context.Context, modelType models.ModelType, req oracle.ScoreRequest) ([]oracle.DateScore, error)
}

// predictionService implements the PredictionService interface
type predictionService struct {
	uowFactory  UnitOfWorkFactory
	oracle      OracleClient
	calendar    *banking.Calendar
	experiments *Catalog
	now         func() time.Time
}

// NewPredictionService creates a new prediction orchestrator
func NewPredictionService(uowFactory UnitOfWorkFactory, oracleClient OracleClient, calendar *banking.Calendar, experiments *Catalog) PredictionService {
	return &predictionService{
		uowFactory:  uowFactory,
		oracle:      oracleClient,
		calendar:    calendar,
		experiments: experiments,
		now:         time.Now,
	}
}

// Predict asks the oracle to score the candidate payback window and
// selects one date by strategy. A nil date with a nil error means the
// machinery had no opinion: disabled model, oracle failure, or no
// candidate qualified. Every oracle-returned candidate is persisted
// before the function returns, with the success flag set only on the
// chosen row.
func (s *predictionService) Predict(ctx context.Context, input PredictionInput) (*time.Time, error) {
	modelType := string(input.Model.ModelType)

	if !input.Model.Enabled {
		recordOutcome(modelType, observability.OutcomeDisabled, "")
		return nil, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	strategy, err := s.resolveStrategy(ctx, uow, input)
	if err != nil {
		return nil, err
	}

	window := s.calendar.PossiblePaybackDates(s.now())
	var dates []string
	for _, d := range window.Dates() {
		dates = append(dates, d.Format(dateLayout))
	}

	if m := observability.GetMetrics(); m != nil {
		m.RecordOracleRequest(modelType)
	}

	scores, err := s.oracle.ScorePaybackDates(ctx, input.Model.ModelType, oracle.ScoreRequest{
		UserID:        input.UserID,
		BankAccountID: input.BankAccountID,
		Dates:         dates,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"approvalID":    input.ApprovalID,
			"userID":        input.UserID,
			"bankAccountID": input.BankAccountID,
			"modelType":     modelType,
			"error":         err,
		}).Warn("Oracle scoring request failed")
		if m := observability.GetMetrics(); m != nil {
			m.RecordOracleFailure(modelType, "request_failed")
		}
		recordOutcome(modelType, observability.OutcomeFailed, observability.ReasonOracleError)

		// Keep the strategy assignment; no prediction rows exist yet
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil, nil
	}

	chosen := selectCandidate(scores, window, strategy, input.Model.ScoreLimit)

	rows, err := buildPredictionRows(input, strategy, scores, chosen)
	if err != nil {
		return nil, err
	}
	if err := uow.PredictionRepository().CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to persist predictions: %w", err)
	}

	var chosenDate *time.Time
	if chosen != nil {
		d, err := time.Parse(dateLayout, chosen.Date)
		if err != nil {
			return nil, fmt.Errorf("oracle returned unparseable date %q: %w", chosen.Date, err)
		}
		chosenDate = &d
	}

	uow.EventBus().Publish(events.PredictionRecordedEvent{
		ApprovalID: input.ApprovalID,
		ModelType:  input.Model.ModelType,
		Candidates: len(scores),
		Chosen:     chosenDate,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if chosenDate != nil {
		recordOutcome(modelType, observability.OutcomeApplied, "")
	} else if len(scores) == 0 {
		recordOutcome(modelType, observability.OutcomeSkipped, observability.ReasonNoCandidates)
	} else {
		recordOutcome(modelType, observability.OutcomeSkipped, observability.ReasonBelowThreshold)
	}

	return chosenDate, nil
}

// GetLastSuccessfulPrediction returns the date of the newest prediction
// marked successful for the approval, nil if none exists
func (s *predictionService) GetLastSuccessfulPrediction(ctx context.Context, approvalID int64) (*time.Time, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prediction, err := uow.PredictionRepository().GetLastSuccessful(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last successful prediction: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if prediction == nil {
		return nil, nil
	}
	return &prediction.PredictedDate, nil
}

// resolveStrategy uses the supplied strategy, or buckets the approval
// into the selection-strategy experiment when none was given.
func (s *predictionService) resolveStrategy(ctx context.Context, uow UnitOfWork, input PredictionInput) (models.SelectionStrategy, error) {
	if input.Strategy != nil {
		return *input.Strategy, nil
	}

	bucketing := experiment.NewBucketing(
		s.experiments.SelectionStrategy,
		input.ApprovalID,
		uow.CounterRepository(),
		newAuditSink(uow.AuditLogRepository(), uow.EventBus()),
	)
	value, err := bucketing.GetResult(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve selection strategy: %w", err)
	}
	return models.SelectionStrategy(value), nil
}

// selectCandidate applies the selection strategy over the candidates
// that survive window filtering. Candidates the oracle returned outside
// the requested window are discarded before selection.
func selectCandidate(scores []oracle.DateScore, window banking.DateRange, strategy models.SelectionStrategy, scoreLimit float64) *oracle.DateScore {
	startDay := window.Start.Format(dateLayout)
	endDay := window.End.Format(dateLayout)

	var candidates []oracle.DateScore
	for _, s := range scores {
		if s.Date >= startDay && s.Date <= endDay {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	switch strategy {
	case models.StrategyMostProbable:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		return &candidates[0]

	default: // earliest over threshold
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Date < candidates[j].Date
		})
		for i := range candidates {
			if candidates[i].Score > scoreLimit {
				return &candidates[i]
			}
		}
		return nil
	}
}

// buildPredictionRows maps every original oracle candidate to a
// persistence row, marking only the chosen one successful.
func buildPredictionRows(input PredictionInput, strategy models.SelectionStrategy, scores []oracle.DateScore, chosen *oracle.DateScore) ([]*models.PaybackPrediction, error) {
	rows := make([]*models.PaybackPrediction, 0, len(scores))
	for _, score := range scores {
		date, err := time.Parse(dateLayout, score.Date)
		if err != nil {
			return nil, fmt.Errorf("oracle returned unparseable date %q: %w", score.Date, err)
		}
		rows = append(rows, &models.PaybackPrediction{
			AdvanceApprovalID: input.ApprovalID,
			PredictedDate:     date,
			Score:             score.Score,
			Success:           chosen != nil && chosen.Date == score.Date,
			ModelType:         input.Model.ModelType,
			ScoreThreshold:    input.Model.ScoreLimit,
			OracleVersion:     input.Model.OracleVersion,
			SelectionStrategy: strategy,
		})
	}
	return rows, nil
}

// recordOutcome records a prediction outcome metric when metrics are up
func recordOutcome(modelType, outcome, reason string) {
	if m := observability.GetMetrics(); m != nil {
		m.RecordPredictionOutcome(modelType, outcome, reason)
	}
}
