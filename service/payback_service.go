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

	log "github.com/sirupsen/logrus"
)

// paybackService implements the PaybackService interface
type paybackService struct {
	uowFactory  UnitOfWorkFactory
	predictions PredictionService
	calendar    *banking.Calendar
	experiments *Catalog
	tinyMoney   ModelConfig
	globalModel ModelConfig
}

// NewPaybackService creates the payback-date pipeline
func NewPaybackService(uowFactory UnitOfWorkFactory, predictions PredictionService, calendar *banking.Calendar, experiments *Catalog, tinyMoney, globalModel ModelConfig) PaybackService {
	return &paybackService{
		uowFactory:  uowFactory,
		predictions: predictions,
		calendar:    calendar,
		experiments: experiments,
		tinyMoney:   tinyMoney,
		globalModel: globalModel,
	}
}

// ConditionallyAdjustPaybackDate runs the payback-date pipeline for one
// approval. Side effects only happen for a real trigger. An approval is
// either micro-advance-adjusted, or subject to the add-one-day and
// global-model experiments, never both. Every decision point falls back
// to the approval's existing date, so callers never see a hard failure
// from the experiment or ML machinery on the micro-advance path.
func (s *paybackService) ConditionallyAdjustPaybackDate(ctx context.Context, approval *models.AdvanceApproval, trigger models.Trigger) (*models.AdvanceApproval, error) {
	if !trigger.IsReal() {
		return approval, nil
	}

	if approval.MicroAdvanceApproved {
		return s.adjustTinyMoney(ctx, approval), nil
	}

	current := approval
	if approval.IncomeValid {
		adjusted, err := s.runAddOneDay(ctx, current)
		if err != nil {
			return nil, err
		}
		current = adjusted
	}

	adjusted, err := s.runGlobalModel(ctx, current)
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

// adjustTinyMoney attempts an ML adjustment for a micro advance. Any
// failure is logged and swallowed: this branch must never abort the
// advance flow, the original date is the safe default.
func (s *paybackService) adjustTinyMoney(ctx context.Context, approval *models.AdvanceApproval) *models.AdvanceApproval {
	date, err := s.predictions.Predict(ctx, PredictionInput{
		ApprovalID:    approval.ID,
		UserID:        approval.UserID,
		BankAccountID: approval.BankAccountID,
		Model:         s.tinyMoney,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"approvalID": approval.ID,
			"userID":     approval.UserID,
			"error":      err,
		}).Warn("Tiny-money prediction failed, keeping original payback date")
		return approval
	}
	if date == nil {
		return approval
	}

	if err := s.applyAdjustment(ctx, approval, *date, observability.SourceTinyMoney, nil); err != nil {
		log.WithFields(log.Fields{
			"approvalID": approval.ID,
			"userID":     approval.UserID,
			"error":      err,
		}).Warn("Failed to persist tiny-money payback date, keeping original")
		return approval
	}

	return withPaybackDate(approval, *date)
}

// runAddOneDay buckets the approval into the add-one-day experiment and,
// when treated, pushes the payback date one calendar day out. The
// approval update and the audit entry commit together or not at all.
func (s *paybackService) runAddOneDay(ctx context.Context, approval *models.AdvanceApproval) (*models.AdvanceApproval, error) {
	def := s.experiments.AddOneDayFor(approval)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bucketing := experiment.NewBucketing(def, approval.ID, uow.CounterRepository(), newAuditSink(uow.AuditLogRepository(), uow.EventBus()))
	bucketed, err := bucketing.IsBucketed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to bucket %s: %w", def.Name, err)
	}
	if !bucketed {
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return approval, nil
	}

	newDate := approval.DefaultPaybackDate.AddDate(0, 0, 1)
	if err := s.writeAdjustment(ctx, uow, approval, newDate, def.Name, observability.SourceAddOneDay); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return withPaybackDate(approval, newDate), nil
}

// runGlobalModel buckets the approval into the global payback-date model
// experiment. The experiment bills its limiter only when the oracle call
// produced a date that was applied; a bucketed-but-failed ML call spends
// no rollout budget.
func (s *paybackService) runGlobalModel(ctx context.Context, approval *models.AdvanceApproval) (*models.AdvanceApproval, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bucketing := experiment.NewBucketing(s.experiments.GlobalModel, approval.ID, uow.CounterRepository(), newAuditSink(uow.AuditLogRepository(), uow.EventBus()))
	bucketed, err := bucketing.IsBucketed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to bucket %s: %w", ExperimentGlobalModel, err)
	}
	if !bucketed {
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return approval, nil
	}

	strategy := models.StrategyMostProbable
	date, err := s.predictions.Predict(ctx, PredictionInput{
		ApprovalID:    approval.ID,
		UserID:        approval.UserID,
		BankAccountID: approval.BankAccountID,
		Strategy:      &strategy,
		Model:         s.globalModel,
	})
	if err != nil {
		return nil, err
	}
	if date == nil {
		if err := bucketing.Bill(ctx, observability.OutcomeFailed); err != nil {
			return nil, fmt.Errorf("failed to bill %s: %w", ExperimentGlobalModel, err)
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return approval, nil
	}

	if err := s.writeAdjustment(ctx, uow, approval, *date, ExperimentGlobalModel, observability.SourceGlobalModel); err != nil {
		return nil, err
	}
	if err := bucketing.Bill(ctx, observability.OutcomeApplied); err != nil {
		return nil, fmt.Errorf("failed to bill %s: %w", ExperimentGlobalModel, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return withPaybackDate(approval, *date), nil
}

// AvailableDatesForNoIncome returns the banking days inside the payback
// window starting at now, merged with the approval's stored successful
// prediction when it falls in range, sorted ascending.
func (s *paybackService) AvailableDatesForNoIncome(ctx context.Context, approvalID int64, now time.Time) ([]time.Time, error) {
	window := s.calendar.PossiblePaybackDates(now)
	dates := s.calendar.BankingDaysIn(window)

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

	if prediction != nil {
		// Compare as calendar days: stored predictions carry no clock time
		day := prediction.PredictedDate.Format(dateLayout)
		inRange := day >= window.Start.Format(dateLayout) && day <= window.End.Format(dateLayout)
		present := false
		for _, d := range dates {
			if d.Format(dateLayout) == day {
				present = true
				break
			}
		}
		if inRange && !present {
			dates = append(dates, prediction.PredictedDate)
			sort.Slice(dates, func(i, j int) bool {
				return dates[i].Format(dateLayout) < dates[j].Format(dateLayout)
			})
		}
	}

	return dates, nil
}

// applyAdjustment persists a new payback date with its audit entry in a
// fresh unit of work.
func (s *paybackService) applyAdjustment(ctx context.Context, approval *models.AdvanceApproval, date time.Time, source string, eventKey *string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	key := source
	if eventKey != nil {
		key = *eventKey
	}
	if err := s.writeAdjustment(ctx, uow, approval, date, key, source); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// writeAdjustment issues the approval update and the audit entry inside
// the caller's transaction so both land or neither does.
func (s *paybackService) writeAdjustment(ctx context.Context, uow UnitOfWork, approval *models.AdvanceApproval, date time.Time, eventKey, source string) error {
	if err := uow.ApprovalRepository().UpdateDefaultPaybackDate(ctx, approval.ID, date); err != nil {
		return fmt.Errorf("failed to update payback date: %w", err)
	}

	key := eventKey
	event := &models.AuditEvent{
		SubjectID: approval.ID,
		EventName: AuditEventPaybackDateAdjusted,
		EventKey:  &key,
		Extra: map[string]any{
			"oldDate": approval.DefaultPaybackDate.Format(dateLayout),
			"newDate": date.Format(dateLayout),
			"source":  source,
		},
	}
	if err := uow.AuditLogRepository().Create(ctx, event); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	uow.EventBus().Publish(events.PaybackDateAdjustedEvent{
		ApprovalID: approval.ID,
		UserID:     approval.UserID,
		OldDate:    approval.DefaultPaybackDate,
		NewDate:    date,
		Source:     source,
	})

	if m := observability.GetMetrics(); m != nil {
		m.RecordPaybackAdjustment(source)
	}
	return nil
}

// withPaybackDate returns a copy of the approval carrying the new date
func withPaybackDate(approval *models.AdvanceApproval, date time.Time) *models.AdvanceApproval {
	updated := *approval
	updated.DefaultPaybackDate = date
	return &updated
}
