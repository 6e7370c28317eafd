package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	"task-assignment-api.com/task-assignment-api/internal/queue"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
)

const drainBatchSize = 100

type Outcome int

const (
	OutcomeClean Outcome = iota
	OutcomeRepaired
	OutcomeOrphan
)

type ReconcileReport struct {
	Checked  int64
	Repaired int64
	Orphans  int64
	Failed   int64
}

// ReconcileService re-derives users' pendingTasks from the tasks that point
// at them, spreading users over a fixed pool of workers.
type ReconcileService struct {
	store        *repository.Store
	ledger       queue.DriftLedger
	workers      int
	clearOrphans bool
	logger       *slog.Logger
}

func NewReconcileService(
	store *repository.Store,
	ledger queue.DriftLedger,
	workers int,
	clearOrphans bool,
	logger *slog.Logger,
) *ReconcileService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		store:        store,
		ledger:       ledger,
		workers:      workers,
		clearOrphans: clearOrphans,
		logger:       logger,
	}
}

// DrainLedger reconciles every user recorded in the drift ledger. Users that
// fail are recorded again for the next run.
func (s *ReconcileService) DrainLedger(ctx context.Context) (ReconcileReport, error) {
	if s.ledger == nil {
		return ReconcileReport{}, nil
	}

	var userIDs []string
	for {
		batch, err := s.ledger.Drain(ctx, drainBatchSize)
		if err != nil {
			// Put back what was already taken so nothing is lost.
			s.requeue(ctx, userIDs)
			return ReconcileReport{}, err
		}
		if len(batch) == 0 {
			break
		}
		userIDs = append(userIDs, batch...)
	}

	report, failed := s.run(ctx, userIDs)
	s.requeue(ctx, failed)
	return report, nil
}

// All reconciles every stored user and every id still referenced by a task.
func (s *ReconcileService) All(ctx context.Context) (ReconcileReport, error) {
	users, err := s.store.Users().ListIDs(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	assignees, err := s.store.Tasks().Assignees(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	report, _ := s.run(ctx, uniqueIDs(append(users, assignees...)))
	return report, nil
}

// Run reconciles the given users.
func (s *ReconcileService) Run(ctx context.Context, userIDs []string) ReconcileReport {
	report, _ := s.run(ctx, uniqueIDs(userIDs))
	return report
}

func (s *ReconcileService) run(ctx context.Context, userIDs []string) (ReconcileReport, []string) {
	var (
		report   ReconcileReport
		wg       sync.WaitGroup
		failedMu sync.Mutex
		failed   []string
	)

	jobs := make(chan string, len(userIDs))
	for _, id := range userIDs {
		jobs <- id
	}
	close(jobs)

	for i := 1; i <= s.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for userID := range jobs {
				atomic.AddInt64(&report.Checked, 1)

				outcome, err := s.Reconcile(ctx, userID)
				if err != nil {
					s.logger.ErrorContext(ctx, "reconcile failed",
						"worker", workerID, "user_id", userID, "error", err.Error())
					atomic.AddInt64(&report.Failed, 1)
					failedMu.Lock()
					failed = append(failed, userID)
					failedMu.Unlock()
					continue
				}

				switch outcome {
				case OutcomeRepaired:
					atomic.AddInt64(&report.Repaired, 1)
				case OutcomeOrphan:
					atomic.AddInt64(&report.Orphans, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	return report, failed
}

// Reconcile makes one user's pendingTasks equal to the tasks assigned to it.
// An id with no user behind it is an orphan; its tasks are unassigned only
// when the service clears orphans.
func (s *ReconcileService) Reconcile(ctx context.Context, userID string) (Outcome, error) {
	outcome := OutcomeClean

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if errors.Is(err, apperrors.ErrUserNotFound) {
			outcome = OutcomeOrphan
			if !s.clearOrphans {
				s.logger.WarnContext(ctx, "tasks reference a missing user", "user_id", userID)
				return nil
			}
			n, err := tx.Tasks().UnassignAll(ctx, userID)
			if err != nil {
				return err
			}
			s.logger.InfoContext(ctx, "cleared orphaned assignments", "user_id", userID, "tasks", n)
			return nil
		}
		if err != nil {
			return err
		}

		assigned, err := tx.Tasks().AssignedTo(ctx, userID)
		if err != nil {
			return err
		}
		if !sameIDs(user.PendingTasks, assigned) {
			if err := tx.Users().ReplacePendingTasks(ctx, userID, assigned); err != nil {
				return err
			}
			outcome = OutcomeRepaired
		}
		return nil
	})
	if err != nil {
		return OutcomeClean, err
	}

	if outcome == OutcomeRepaired {
		s.logger.InfoContext(ctx, "repaired pending tasks", "user_id", userID)
	}
	return outcome, nil
}

func (s *ReconcileService) requeue(ctx context.Context, userIDs []string) {
	for _, id := range userIDs {
		if err := s.ledger.Record(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to record drift", "user_id", id, "error", err.Error())
		}
	}
}

// sameIDs reports whether a and b hold the same ids, ignoring order.
func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return len(difference(a, b)) == 0
}
