package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransactionalBusFlushDelivers(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan PaybackDateAdjustedEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypePaybackDateAdjusted, func(ctx context.Context, event Event) {
		defer wg.Done()
		if adjusted, ok := event.(PaybackDateAdjustedEvent); ok {
			eventReceived <- adjusted
		} else {
			t.Errorf("Expected PaybackDateAdjustedEvent, got %T", event)
		}
	})

	testEvent := PaybackDateAdjustedEvent{
		ApprovalID: 42,
		UserID:     7,
		OldDate:    time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC),
		NewDate:    time.Date(2020, 3, 17, 0, 0, 0, 0, time.UTC),
		Source:     "payback_date_plus_one",
	}

	transactionalBus.Publish(testEvent)
	assert.NoError(t, transactionalBus.Flush(context.Background()))

	wg.Wait()

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent.ApprovalID, received.ApprovalID)
		assert.Equal(t, testEvent.NewDate, received.NewDate)
		assert.Equal(t, testEvent.Source, received.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

func TestTransactionalBusDiscardDropsPending(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	delivered := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeExperimentAssigned, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	transactionalBus.Publish(ExperimentAssignedEvent{Experiment: "capped", SubjectID: 1, Value: "treatment"})
	transactionalBus.Discard()
	assert.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case <-delivered:
		t.Fatal("Discarded event should not be delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusHandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)

	bus.Subscribe(EventTypePredictionRecorded, func(ctx context.Context, event Event) {
		defer wg.Done()
		panic("handler blew up")
	})

	received := false
	bus.Subscribe(EventTypePredictionRecorded, func(ctx context.Context, event Event) {
		defer wg.Done()
		received = true
	})

	bus.Emit(context.Background(), PredictionRecordedEvent{ApprovalID: 1, Candidates: 8})
	wg.Wait()

	assert.True(t, received)
}
