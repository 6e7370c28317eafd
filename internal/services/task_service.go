package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"task-assignment-api.com/task-assignment-api/internal/constants"
	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	model "task-assignment-api.com/task-assignment-api/internal/models"
	"task-assignment-api.com/task-assignment-api/internal/query"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
)

var ErrAssigneeNotFound = apperrors.Validation("Assigned user does not exist.")

// TaskInput is a full task document as supplied on create.
type TaskInput struct {
	Name             string
	Description      string
	Deadline         time.Time
	Completed        bool
	AssignedUser     string
	AssignedUserName *string
}

// TaskPatch carries the fields an update supplies; nil fields keep their
// stored value.
type TaskPatch struct {
	Name             *string
	Description      *string
	Deadline         *time.Time
	Completed        *bool
	AssignedUser     *string
	AssignedUserName *string
}

type TaskService struct {
	store            *repository.Store
	engine           *ConsistencyEngine
	strictAssignment bool
	defaultLimit     int
}

func NewTaskService(
	store *repository.Store,
	engine *ConsistencyEngine,
	strictAssignment bool,
	defaultLimit int,
) *TaskService {
	return &TaskService{
		store:            store,
		engine:           engine,
		strictAssignment: strictAssignment,
		defaultLimit:     defaultLimit,
	}
}

// List returns the matching tasks, their projection when opts selects
// fields, or their count when opts.Count is set.
func (s *TaskService) List(ctx context.Context, opts query.Options) (any, error) {
	if opts.Count {
		return s.store.Tasks().Count(ctx, opts)
	}

	tasks, err := s.store.Tasks().Find(ctx, opts, s.defaultLimit)
	if err != nil {
		return nil, err
	}
	if opts.Projection != nil {
		return query.Apply(opts.Projection, tasks)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	return s.store.Tasks().FindByID(ctx, id)
}

// Create stores a new task and lists it on its assignee. When the reciprocal
// update fails outside a transaction the created task is returned together
// with the *apperrors.ReciprocalError.
func (s *TaskService) Create(ctx context.Context, in TaskInput) (*model.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("Task name is required.")
	}
	if in.Deadline.IsZero() {
		return nil, apperrors.Validation("Deadline is required.")
	}

	task := &model.Task{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  in.Description,
		Deadline:     in.Deadline.UTC(),
		Completed:    in.Completed,
		AssignedUser: strings.TrimSpace(in.AssignedUser),
	}

	assigneeName, err := s.assigneeName(ctx, task.AssignedUser, in.AssignedUserName)
	if err != nil {
		return nil, err
	}
	task.AssignedUserName = assigneeName

	err = s.engine.OnTaskAssigned(ctx, task.ID, task.AssignedUser, func(ctx context.Context, st *repository.Store) error {
		return st.Tasks().Create(ctx, task)
	})
	if err != nil {
		if _, ok := apperrors.AsReciprocal(err); ok {
			return task, err
		}
		return nil, err
	}
	return task, nil
}

// Update applies patch to the stored task and moves it between the old and
// new assignees' pendingTasks.
func (s *TaskService) Update(ctx context.Context, id string, patch TaskPatch) (*model.Task, error) {
	current, err := s.store.Tasks().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.Validation("Task name is required.")
		}
		next.Name = name
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Deadline != nil {
		if patch.Deadline.IsZero() {
			return nil, apperrors.Validation("Deadline is required.")
		}
		next.Deadline = patch.Deadline.UTC()
	}
	if patch.Completed != nil {
		next.Completed = *patch.Completed
	}
	if patch.AssignedUser != nil {
		next.AssignedUser = strings.TrimSpace(*patch.AssignedUser)
	}

	if next.AssignedUser != current.AssignedUser || patch.AssignedUserName != nil {
		if next.AssignedUserName, err = s.assigneeName(ctx, next.AssignedUser, patch.AssignedUserName); err != nil {
			return nil, err
		}
	}

	write := func(ctx context.Context, st *repository.Store) error {
		return st.Tasks().Update(ctx, &next)
	}

	if next.AssignedUser == "" {
		err = s.engine.OnTaskUnassignedOrDeleted(ctx, id, current.AssignedUser, write)
	} else {
		err = s.engine.OnTaskReassigned(ctx, id, current.AssignedUser, next.AssignedUser, write)
	}
	if err != nil {
		if _, ok := apperrors.AsReciprocal(err); ok {
			return &next, err
		}
		return nil, err
	}
	return &next, nil
}

// Delete removes the task and takes it off its assignee's pendingTasks.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	current, err := s.store.Tasks().FindByID(ctx, id)
	if err != nil {
		return err
	}

	return s.engine.OnTaskUnassignedOrDeleted(ctx, id, current.AssignedUser, func(ctx context.Context, st *repository.Store) error {
		return st.Tasks().Delete(ctx, id, current.Version)
	})
}

// assigneeName resolves the assignedUserName stored next to userID. An
// explicit name wins; otherwise the user's own name is used, and tasks
// without an assignee are always "unassigned".
func (s *TaskService) assigneeName(ctx context.Context, userID string, explicit *string) (string, error) {
	if userID == "" {
		return constants.UnassignedUserName, nil
	}

	user, err := s.store.Users().FindByID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		if s.strictAssignment {
			return "", ErrAssigneeNotFound
		}
		user = nil
	case err != nil:
		return "", err
	}

	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		return strings.TrimSpace(*explicit), nil
	}
	if user != nil {
		return user.Name, nil
	}
	return constants.UnassignedUserName, nil
}
