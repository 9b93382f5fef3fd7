package events

import (
	"context"
	"sync"
	"time"

	"advancer/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePaybackDateAdjusted EventType = "payback_date_adjusted"
	EventTypeExperimentAssigned  EventType = "experiment_assigned"
	EventTypePredictionRecorded  EventType = "prediction_recorded"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PaybackDateAdjustedEvent represents a payback date rewrite on an approval
type PaybackDateAdjustedEvent struct {
	ApprovalID int64
	UserID     int64
	OldDate    time.Time
	NewDate    time.Time
	Source     string
}

func (e PaybackDateAdjustedEvent) Type() EventType {
	return EventTypePaybackDateAdjusted
}

// ExperimentAssignedEvent represents a subject landing in a treatment arm
type ExperimentAssignedEvent struct {
	Experiment string
	SubjectID  int64
	Value      string
}

func (e ExperimentAssignedEvent) Type() EventType {
	return EventTypeExperimentAssigned
}

// PredictionRecordedEvent represents an oracle call whose candidates were persisted
type PredictionRecordedEvent struct {
	ApprovalID int64
	ModelType  models.ModelType
	Candidates int
	Chosen     *time.Time
}

func (e PredictionRecordedEvent) Type() EventType {
	return EventTypePredictionRecorded
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events are emitted on a background context so handlers outlive the
	// transaction context that produced them
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
