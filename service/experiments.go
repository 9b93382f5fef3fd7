package service

import (
	"context"
	"fmt"
	"time"

	"advancer/events"
	"advancer/experiment"
	"advancer/models"
	"advancer/observability"
)

// Audit event names
const (
	AuditEventExperimentBucketed  = "experiment_bucketed"
	AuditEventPaybackDateAdjusted = "payback_date_adjusted"
)

// Experiment names. The add-one-day experiment is split in two so the
// less common non-Friday population still accumulates enough sample.
const (
	ExperimentAddOneDayFriday    = "payback_date_add_one_day_friday"
	ExperimentAddOneDayNonFriday = "payback_date_add_one_day_non_friday"
	ExperimentSelectionStrategy  = "payback_date_selection_strategy"
	ExperimentGlobalModel        = "global_payback_date_model"
)

// Treatment arm values
const (
	armAddOneDay   = "add_one_day"
	armGlobalModel = "global_model"

	controlUnchanged = "unchanged"
)

// Catalog holds the validated experiment definitions the payback
// pipeline runs. Build it once at startup; a bad ratio is a
// configuration error, not a per-request failure.
type Catalog struct {
	AddOneDayFriday    experiment.Definition
	AddOneDayNonFriday experiment.Definition
	SelectionStrategy  experiment.Definition
	GlobalModel        experiment.Definition
}

// NewCatalog builds the experiment catalog. globalModelLimit caps the
// number of billable global-model assignments; pass 0 for unlimited.
func NewCatalog(globalModelLimit int64) (*Catalog, error) {
	addOneDayFriday, err := experiment.NewDefinition(
		ExperimentAddOneDayFriday, controlUnchanged,
		experiment.Arm{Value: armAddOneDay, Ratio: 0.5},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	addOneDayNonFriday, err := experiment.NewDefinition(
		ExperimentAddOneDayNonFriday, controlUnchanged,
		experiment.Arm{Value: armAddOneDay, Ratio: 0.5},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	selectionStrategy, err := experiment.NewDefinition(
		ExperimentSelectionStrategy, string(models.StrategyEarliestOverThreshold),
		experiment.Arm{Value: string(models.StrategyMostProbable), Ratio: 0.5},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	globalModel, err := experiment.NewDefinition(
		ExperimentGlobalModel, controlUnchanged,
		experiment.Arm{Value: armGlobalModel, Ratio: 0.5},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	if globalModelLimit > 0 {
		globalModel.Limit = &globalModelLimit
	}
	// A bucketed subject only spends rollout budget when the oracle call
	// actually produced an applied date
	globalModel.Cost = func(outcome string) int64 {
		if outcome == observability.OutcomeApplied {
			return 1
		}
		return 0
	}

	return &Catalog{
		AddOneDayFriday:    addOneDayFriday,
		AddOneDayNonFriday: addOneDayNonFriday,
		SelectionStrategy:  selectionStrategy,
		GlobalModel:        globalModel,
	}, nil
}

// AddOneDayFor picks the add-one-day definition matching the weekday of
// the approval's current payback date.
func (c *Catalog) AddOneDayFor(approval *models.AdvanceApproval) experiment.Definition {
	if approval.DefaultPaybackDate.Weekday() == time.Friday {
		return c.AddOneDayFriday
	}
	return c.AddOneDayNonFriday
}

// auditSink writes experiment assignments to the audit log and mirrors
// them onto the event bus so the rows land in the same transaction as
// the rest of the branch.
type auditSink struct {
	audit     AuditLogRepository
	publisher EventPublisher
}

func newAuditSink(audit AuditLogRepository, publisher EventPublisher) *auditSink {
	return &auditSink{audit: audit, publisher: publisher}
}

// RecordAssignment implements experiment.AuditSink
func (s *auditSink) RecordAssignment(ctx context.Context, subjectID int64, experimentName, value string) error {
	key := experimentName
	event := &models.AuditEvent{
		SubjectID: subjectID,
		EventName: AuditEventExperimentBucketed,
		EventKey:  &key,
		Extra: map[string]any{
			"experiment": experimentName,
			"value":      value,
		},
	}
	if err := s.audit.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record experiment assignment: %w", err)
	}

	s.publisher.Publish(events.ExperimentAssignedEvent{
		Experiment: experimentName,
		SubjectID:  subjectID,
		Value:      value,
	})

	if m := observability.GetMetrics(); m != nil {
		m.RecordExperimentAssignment(experimentName, value)
	}
	return nil
}
