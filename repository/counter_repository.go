package repository

import (
	"context"
	"fmt"

	"advancer/database"

	"github.com/jackc/pgx/v5"
)

// CounterRepository implements the CounterRepository interface over the
// experiment_counters table. Increment relies on a single UPSERT so the
// add is atomic at the database; no application-level locking exists.
type CounterRepository struct {
	q queryable
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *database.DB) *CounterRepository {
	return &CounterRepository{q: db.Pool}
}

// newCounterRepositoryWithTx creates a new counter repository with a transaction
func newCounterRepositoryWithTx(tx queryable) *CounterRepository {
	return &CounterRepository{q: tx}
}

// Get returns the current counter value, 0 if the counter was never set
func (r *CounterRepository) Get(ctx context.Context, name string) (int64, error) {
	query := `
		SELECT count
		FROM experiment_counters
		WHERE name = $1
	`

	var count int64
	err := r.q.QueryRow(ctx, query, name).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", name, err)
	}

	return count, nil
}

// Increment atomically adds amount to the counter
func (r *CounterRepository) Increment(ctx context.Context, name string, amount int64) error {
	query := `
		INSERT INTO experiment_counters (name, count)
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET count = experiment_counters.count + $2, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, name, amount); err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", name, err)
	}

	return nil
}

// Reset removes the counter's state
func (r *CounterRepository) Reset(ctx context.Context, name string) error {
	query := `
		DELETE FROM experiment_counters
		WHERE name = $1
	`

	if _, err := r.q.Exec(ctx, query, name); err != nil {
		return fmt.Errorf("failed to reset counter %s: %w", name, err)
	}

	return nil
}
