package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	model "task-assignment-api.com/task-assignment-api/internal/models"
	"task-assignment-api.com/task-assignment-api/internal/query"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
)

type UserInput struct {
	Name         string
	Email        string
	PendingTasks []string
}

// UserPatch carries the fields an update supplies. A nil PendingTasks keeps
// the stored list; a non-nil empty one clears it.
type UserPatch struct {
	Name         *string
	Email        *string
	PendingTasks *[]string
}

type UserService struct {
	store  *repository.Store
	engine *ConsistencyEngine
}

func NewUserService(store *repository.Store, engine *ConsistencyEngine) *UserService {
	return &UserService{store: store, engine: engine}
}

func (s *UserService) List(ctx context.Context, opts query.Options) (any, error) {
	if opts.Count {
		return s.store.Users().Count(ctx, opts)
	}

	users, err := s.store.Users().Find(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.Projection != nil {
		return query.Apply(opts.Projection, users)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.store.Users().FindByID(ctx, id)
}

// Create stores a new user. Tasks named in PendingTasks are assigned to it.
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return nil, apperrors.Validation("Name and email are required.")
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	pending := uniqueIDs(in.PendingTasks)
	previous, err := s.previousAssignees(ctx, pending)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PendingTasks: pending,
	}

	change := UserChange{
		UserID:            user.ID,
		UserName:          user.Name,
		Added:             pending,
		PreviousAssignees: previous,
	}
	err = s.engine.OnUserChanged(ctx, change, func(ctx context.Context, st *repository.Store) error {
		return st.Users().Create(ctx, user)
	})
	if err != nil {
		if _, ok := apperrors.AsReciprocal(err); ok {
			return user, err
		}
		return nil, err
	}
	return user, nil
}

// Update applies patch. A new name replaces the old one on the user's tasks,
// and an edited pendingTasks list reassigns the tasks added to or dropped
// from it.
func (s *UserService) Update(ctx context.Context, id string, patch UserPatch) (*model.User, error) {
	current, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.PendingTasks = append([]string{}, current.PendingTasks...)

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.Validation("Name and email are required.")
		}
		next.Name = name
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email == "" {
			return nil, apperrors.Validation("Name and email are required.")
		}
		if email != current.Email {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
		}
		next.Email = email
	}

	change := UserChange{
		UserID:       id,
		UserName:     next.Name,
		PreviousName: current.Name,
		Renamed:      next.Name != current.Name,
	}
	if patch.PendingTasks != nil {
		next.PendingTasks = uniqueIDs(*patch.PendingTasks)
		change.Added = difference(next.PendingTasks, current.PendingTasks)
		change.Removed = difference(current.PendingTasks, next.PendingTasks)
		if change.PreviousAssignees, err = s.previousAssignees(ctx, change.Added); err != nil {
			return nil, err
		}
	}

	err = s.engine.OnUserChanged(ctx, change, func(ctx context.Context, st *repository.Store) error {
		if err := st.Users().Update(ctx, &next); err != nil {
			return err
		}
		if patch.PendingTasks == nil {
			return nil
		}
		return st.Users().ReplacePendingTasks(ctx, id, next.PendingTasks)
	})
	if err != nil {
		if _, ok := apperrors.AsReciprocal(err); ok {
			return &next, err
		}
		return nil, err
	}
	return &next, nil
}

// Delete unassigns every task pointing at the user and removes it.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Users().FindByID(ctx, id); err != nil {
		return err
	}

	return s.engine.OnUserDeleted(ctx, id, func(ctx context.Context, st *repository.Store) error {
		return st.Users().Delete(ctx, id)
	})
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	_, err := s.store.Users().FindByEmail(ctx, email, excludeID)
	switch {
	case err == nil:
		return apperrors.ErrEmailExists
	case errors.Is(err, apperrors.ErrUserNotFound):
		return nil
	default:
		return err
	}
}

// previousAssignees checks that every id names a task and returns who each
// one is assigned to now.
func (s *UserService) previousAssignees(ctx context.Context, taskIDs []string) (map[string]string, error) {
	tasks, err := s.store.Tasks().FindByIDs(ctx, taskIDs)
	if err != nil {
		return nil, err
	}

	assignees := make(map[string]string, len(taskIDs))
	for _, id := range taskIDs {
		task, ok := tasks[id]
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("Task %s does not exist.", id))
		}
		assignees[id] = task.AssignedUser
	}
	return assignees, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// difference returns the ids of a missing from b, in a's order.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, id := range b {
		in[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := in[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
