package experiment

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// AuditSink records non-control assignments for later analysis
type AuditSink interface {
	RecordAssignment(ctx context.Context, subjectID int64, experiment, value string) error
}

// Bucketing decides whether one subject receives a treatment or the
// control value for one experiment. The decision is cached on the
// instance so repeated calls within a pipeline invocation never
// double-log or double-count; create a fresh instance per invocation.
type Bucketing struct {
	def       Definition
	subjectID int64
	limiter   *RateLimiter
	audit     AuditSink
	result    *string
}

// NewBucketing creates a bucketing engine for one (subject, experiment)
// pair. The limiter is derived from the definition's name and limit.
func NewBucketing(def Definition, subjectID int64, counters CounterStore, audit AuditSink) *Bucketing {
	return &Bucketing{
		def:       def,
		subjectID: subjectID,
		limiter:   NewRateLimiter(counters, def.Name, def.Limit),
		audit:     audit,
	}
}

// GetResult returns the subject's assignment. Once the exposure limit is
// reached the experiment is closed and every new subject is forced to
// control. Treatment assignments are written to the audit sink; when the
// definition has no custom cost function they also spend 1 unit of budget
// immediately. With a custom cost function the caller bills via Bill once
// the outcome is known.
func (b *Bucketing) GetResult(ctx context.Context) (string, error) {
	if b.result != nil {
		return *b.result, nil
	}

	within, err := b.limiter.WithinLimit(ctx)
	if err != nil {
		return "", err
	}
	if !within {
		log.WithFields(log.Fields{
			"experiment": b.def.Name,
			"subjectID":  b.subjectID,
		}).Debug("Experiment exposure limit reached, forcing control")
		return b.cache(b.def.Control), nil
	}

	value := b.def.Assign(b.subjectID)
	if value != b.def.Control {
		if err := b.audit.RecordAssignment(ctx, b.subjectID, b.def.Name, value); err != nil {
			return "", err
		}
		if b.def.Cost == nil {
			if err := b.limiter.Increment(ctx, 1); err != nil {
				return "", err
			}
		}
	}

	return b.cache(value), nil
}

// IsBucketed reports whether the subject landed in a treatment arm
func (b *Bucketing) IsBucketed(ctx context.Context) (bool, error) {
	value, err := b.GetResult(ctx)
	if err != nil {
		return false, err
	}
	return value != b.def.Control, nil
}

// Bill spends the budget for an outcome under a custom cost function.
// Being bucketed and being billable are independent: a treatment whose
// effect never materialized can cost nothing.
func (b *Bucketing) Bill(ctx context.Context, outcome string) error {
	if b.def.Cost == nil {
		return nil
	}
	amount := b.def.Cost(outcome)
	if amount == 0 {
		return nil
	}
	return b.limiter.Increment(ctx, amount)
}

func (b *Bucketing) cache(value string) string {
	b.result = &value
	return value
}
