package services

import (
	"context"
	"log/slog"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	"task-assignment-api.com/task-assignment-api/internal/queue"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
)

// PrimaryWrite is the write on the entity the request targets. It runs
// against the store handed to it, which is a transaction when the engine is
// transactional.
type PrimaryWrite func(ctx context.Context, store *repository.Store) error

type reciprocalStep func(ctx context.Context, store *repository.Store) error

// ConsistencyEngine keeps tasks' assignedUser fields and users'
// pendingTasks lists pointing at each other.
//
// In transactional mode the primary write and its reciprocal updates commit
// together. Otherwise they run one after the other; a failed reciprocal step
// leaves the primary write in place, is returned as a
// *apperrors.ReciprocalError and the user is recorded in the drift ledger.
type ConsistencyEngine struct {
	store         *repository.Store
	ledger        queue.DriftLedger
	transactional bool
	logger        *slog.Logger
}

func NewConsistencyEngine(
	store *repository.Store,
	ledger queue.DriftLedger,
	transactional bool,
	logger *slog.Logger,
) *ConsistencyEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsistencyEngine{
		store:         store,
		ledger:        ledger,
		transactional: transactional,
		logger:        logger,
	}
}

// OnTaskAssigned runs write (a task create or update) and then adds taskID
// to userID's pendingTasks. An unknown user leaves the task orphaned without
// a reciprocal entry.
func (e *ConsistencyEngine) OnTaskAssigned(ctx context.Context, taskID, userID string, write PrimaryWrite) error {
	return e.run(ctx, write, func(ctx context.Context, store *repository.Store) error {
		return e.addPending(ctx, store, "assign", taskID, userID)
	}, userID)
}

// OnTaskReassigned runs write and then moves taskID from oldUserID's
// pendingTasks to newUserID's. The task record is written first so that an
// interruption leaves it correct and only the lists stale.
func (e *ConsistencyEngine) OnTaskReassigned(ctx context.Context, taskID, oldUserID, newUserID string, write PrimaryWrite) error {
	return e.run(ctx, write, func(ctx context.Context, store *repository.Store) error {
		if oldUserID == newUserID {
			return nil
		}
		if oldUserID != "" {
			if err := e.removePending(ctx, store, "reassign", taskID, oldUserID); err != nil {
				return err
			}
		}
		if newUserID != "" {
			return e.addPending(ctx, store, "reassign", taskID, newUserID)
		}
		return nil
	}, oldUserID, newUserID)
}

// OnTaskUnassignedOrDeleted runs write (a task delete, or an update that
// clears assignedUser) and then removes taskID from oldUserID's
// pendingTasks.
func (e *ConsistencyEngine) OnTaskUnassignedOrDeleted(ctx context.Context, taskID, oldUserID string, write PrimaryWrite) error {
	return e.run(ctx, write, func(ctx context.Context, store *repository.Store) error {
		if oldUserID == "" {
			return nil
		}
		return e.removePending(ctx, store, "unassign", taskID, oldUserID)
	}, oldUserID)
}

// OnUserDeleted unassigns every task whose assignedUser is userID, found by
// scanning tasks rather than trusting the user's own list, and then runs
// write to remove the user record.
func (e *ConsistencyEngine) OnUserDeleted(ctx context.Context, userID string, write PrimaryWrite) error {
	cascade := func(ctx context.Context, store *repository.Store) error {
		n, err := store.Tasks().UnassignAll(ctx, userID)
		if err != nil {
			return err
		}
		e.logger.DebugContext(ctx, "unassigned tasks of deleted user", "user_id", userID, "tasks", n)
		return nil
	}

	if e.transactional {
		return e.store.Transaction(ctx, func(tx *repository.Store) error {
			if err := cascade(ctx, tx); err != nil {
				return err
			}
			return write(ctx, tx)
		})
	}

	if err := cascade(ctx, e.store); err != nil {
		return err
	}
	if err := write(ctx, e.store); err != nil {
		// The user survived its cascade, so its list now names unassigned
		// tasks.
		e.recordDrift(ctx, userID)
		return err
	}
	return nil
}

// UserChange describes an update of a user that other documents mirror:
// a new display name, or a direct edit of pendingTasks.
type UserChange struct {
	UserID       string
	UserName     string
	PreviousName string
	Renamed      bool
	Added    []string
	Removed  []string
	// PreviousAssignees maps each added task to the user it was assigned to
	// before the edit.
	PreviousAssignees map[string]string
}

// OnUserChanged runs write (which stores the user and its new list) and then
// moves assignedUserName from the previous name to the new one, unassigns every removed
// task still pointing at the user, and points every added task at the user,
// taking it off its previous assignee's list.
func (e *ConsistencyEngine) OnUserChanged(ctx context.Context, change UserChange, write PrimaryWrite) error {
	affected := []string{change.UserID}
	for _, taskID := range change.Added {
		affected = append(affected, change.PreviousAssignees[taskID])
	}

	return e.run(ctx, write, func(ctx context.Context, store *repository.Store) error {
		if change.Renamed {
			if _, err := store.Tasks().RenameAssignee(ctx, change.UserID, change.PreviousName, change.UserName); err != nil {
				return reciprocalFailure("rename", "", change.UserID, err)
			}
		}

		for _, taskID := range change.Removed {
			if _, err := store.Tasks().UnassignFrom(ctx, taskID, change.UserID); err != nil {
				return reciprocalFailure("unassign", taskID, change.UserID, err)
			}
		}

		for _, taskID := range change.Added {
			if prev := change.PreviousAssignees[taskID]; prev != "" && prev != change.UserID {
				if err := e.removePending(ctx, store, "reassign", taskID, prev); err != nil {
					return err
				}
			}
			if err := store.Tasks().Assign(ctx, taskID, change.UserID, change.UserName); err != nil {
				return reciprocalFailure("assign", taskID, change.UserID, err)
			}
		}
		return nil
	}, affected...)
}

// run executes write and then step. affected names every user whose
// pendingTasks step may touch; outside a transaction they are all recorded
// as drifted when step fails, since later steps never ran.
func (e *ConsistencyEngine) run(ctx context.Context, write PrimaryWrite, step reciprocalStep, affected ...string) error {
	if e.transactional {
		return e.store.Transaction(ctx, func(tx *repository.Store) error {
			if write != nil {
				if err := write(ctx, tx); err != nil {
					return err
				}
			}
			if err := step(ctx, tx); err != nil {
				// Rolled back together with the primary write, so this is a
				// plain store failure for the caller.
				if rec, ok := apperrors.AsReciprocal(err); ok {
					return rec.Err
				}
				return err
			}
			return nil
		})
	}

	if write != nil {
		if err := write(ctx, e.store); err != nil {
			return err
		}
	}

	err := step(ctx, e.store)
	if rec, ok := apperrors.AsReciprocal(err); ok {
		e.logger.WarnContext(ctx, "reciprocal update failed",
			"op", rec.Op,
			"task_id", rec.TaskID,
			"user_id", rec.UserID,
			"error", rec.Err.Error())
		e.recordDrift(ctx, rec.UserID)
		for _, userID := range affected {
			if userID != rec.UserID {
				e.recordDrift(ctx, userID)
			}
		}
	}
	return err
}

func (e *ConsistencyEngine) addPending(ctx context.Context, store *repository.Store, op, taskID, userID string) error {
	if userID == "" {
		return nil
	}

	exists, err := store.Users().AddPendingTask(ctx, userID, taskID)
	if err != nil {
		return reciprocalFailure(op, taskID, userID, err)
	}
	if !exists {
		e.logger.InfoContext(ctx, "task assigned to unknown user", "task_id", taskID, "user_id", userID)
	}
	return nil
}

func (e *ConsistencyEngine) removePending(ctx context.Context, store *repository.Store, op, taskID, userID string) error {
	if err := store.Users().RemovePendingTask(ctx, userID, taskID); err != nil {
		return reciprocalFailure(op, taskID, userID, err)
	}
	return nil
}

func reciprocalFailure(op, taskID, userID string, err error) error {
	return &apperrors.ReciprocalError{Op: op, TaskID: taskID, UserID: userID, Err: err}
}

func (e *ConsistencyEngine) recordDrift(ctx context.Context, userID string) {
	if e.ledger == nil || userID == "" {
		return
	}
	if err := e.ledger.Record(ctx, userID); err != nil {
		e.logger.ErrorContext(ctx, "failed to record drift", "user_id", userID, "error", err.Error())
	}
}
