package experiment

import (
	"context"
	"fmt"
)

// CounterStore is the remote named counter backing rollout limits. The
// storage layer guarantees that Increment is an atomic add; this package
// never takes an application-level lock around it.
type CounterStore interface {
	// Get returns the current value, 0 if the counter was never set
	Get(ctx context.Context, name string) (int64, error)

	// Increment atomically adds amount to the counter
	Increment(ctx context.Context, name string, amount int64) error

	// Reset removes the counter's state
	Reset(ctx context.Context, name string) error
}

// RateLimiter caps how much exposure budget a named experiment may spend.
// WithinLimit and Increment are two independent calls, not one
// transaction: under concurrent callers the cap can be transiently
// overshot by the number of in-flight requests. Callers accept that
// trade-off; a strict cap would need an increment-if-below-limit
// primitive in the store.
type RateLimiter struct {
	name     string
	limit    *int64
	counters CounterStore
}

// NewRateLimiter creates a limiter over the named counter. A nil limit
// means unbounded.
func NewRateLimiter(counters CounterStore, name string, limit *int64) *RateLimiter {
	return &RateLimiter{
		name:     name,
		limit:    limit,
		counters: counters,
	}
}

// WithinLimit reports whether the experiment still has budget left
func (l *RateLimiter) WithinLimit(ctx context.Context) (bool, error) {
	if l.limit == nil {
		return true, nil
	}

	count, err := l.counters.Get(ctx, l.name)
	if err != nil {
		return false, fmt.Errorf("failed to read counter %s: %w", l.name, err)
	}
	return count < *l.limit, nil
}

// Increment spends amount of the experiment's budget
func (l *RateLimiter) Increment(ctx context.Context, amount int64) error {
	if err := l.counters.Increment(ctx, l.name, amount); err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", l.name, err)
	}
	return nil
}
