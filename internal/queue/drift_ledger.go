package queue

import "context"

// DriftLedger remembers users whose pendingTasks may disagree with the task
// collection after a failed reciprocal update, until reconcile drains them.
type DriftLedger interface {
	Record(ctx context.Context, userID string) error

	// Drain removes and returns up to max recorded user ids.
	Drain(ctx context.Context, max int) ([]string, error)

	Size(ctx context.Context) (int64, error)
}
