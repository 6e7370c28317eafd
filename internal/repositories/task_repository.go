package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"task-assignment-api.com/task-assignment-api/internal/constants"
	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	model "task-assignment-api.com/task-assignment-api/internal/models"
	"task-assignment-api.com/task-assignment-api/internal/query"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create stores task, filling in the identifier, creation date and version
// when they are unset.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.DateCreated.IsZero() {
		task.DateCreated = time.Now().UTC()
	}
	if task.AssignedUserName == "" {
		task.AssignedUserName = constants.UnassignedUserName
	}
	task.Version = 1

	return translate(r.db.WithContext(ctx).Create(task).Error, nil)
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrTaskNotFound)
	}
	return &task, nil
}

func (r *TaskRepository) Find(ctx context.Context, opts query.Options, defaultLimit int) ([]model.Task, error) {
	tasks := []model.Task{}
	err := r.db.WithContext(ctx).Model(&model.Task{}).Scopes(opts.Page(defaultLimit)).Find(&tasks).Error
	return tasks, translate(err, nil)
}

func (r *TaskRepository) Count(ctx context.Context, opts query.Options) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).Scopes(opts.Where()).Count(&total).Error
	if err != nil {
		return 0, translate(err, nil)
	}
	return opts.Window(total), nil
}

// Update writes every mutable field of task, guarded by its version. A
// concurrent writer that got there first makes this return ErrOptimisticLock.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]interface{}{
			"name":               task.Name,
			"description":        task.Description,
			"deadline":           task.Deadline,
			"completed":          task.Completed,
			"assigned_user":      task.AssignedUser,
			"assigned_user_name": task.AssignedUserName,
			"version":            gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return translate(res.Error, nil)
	}

	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, task.ID); err != nil {
			return err
		}
		return apperrors.ErrOptimisticLock
	}

	task.Version++
	return nil
}

// Delete removes the task if it is still at version.
func (r *TaskRepository) Delete(ctx context.Context, id string, version uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND version = ?", id, version).Delete(&model.Task{})
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrOptimisticLock
	}
	return nil
}

// Assign points a task at userID unconditionally; it is the reciprocal write
// used when a user's pendingTasks list is edited directly.
func (r *TaskRepository) Assign(ctx context.Context, taskID, userID, userName string) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"assigned_user":      userID,
			"assigned_user_name": userName,
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

// UnassignFrom clears the assignment of taskID only if it still points at
// userID, and reports whether it did.
func (r *TaskRepository) UnassignFrom(ctx context.Context, taskID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND assigned_user = ?", taskID, userID).
		Updates(unassignedColumns())
	if res.Error != nil {
		return false, translate(res.Error, nil)
	}
	return res.RowsAffected > 0, nil
}

// UnassignAll resets every task referencing userID in one statement.
func (r *TaskRepository) UnassignAll(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("assigned_user = ?", userID).
		Updates(unassignedColumns())
	if res.Error != nil {
		return 0, translate(res.Error, nil)
	}
	return res.RowsAffected, nil
}

// RenameAssignee replaces oldName with newName on the user's tasks. Tasks
// whose assignedUserName was set to something else keep it.
func (r *TaskRepository) RenameAssignee(ctx context.Context, userID, oldName, newName string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("assigned_user = ? AND assigned_user_name = ?", userID, oldName).
		Updates(map[string]interface{}{
			"assigned_user_name": newName,
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, translate(res.Error, nil)
	}
	return res.RowsAffected, nil
}

// AssignedTo lists the ids of tasks whose assignedUser is userID, oldest
// first.
func (r *TaskRepository) AssignedTo(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("assigned_user = ?", userID).
		Order("date_created asc, id asc").
		Pluck("id", &ids).Error
	return ids, translate(err, nil)
}

// FindByIDs returns the tasks among ids that exist, keyed by id.
func (r *TaskRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Task, error) {
	found := make(map[string]model.Task, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, translate(err, nil)
	}
	for _, t := range tasks {
		found[t.ID] = t
	}
	return found, nil
}

// Assignees lists every distinct non-empty assignedUser value.
func (r *TaskRepository) Assignees(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("assigned_user <> ''").
		Distinct().
		Pluck("assigned_user", &ids).Error
	return ids, translate(err, nil)
}

func unassignedColumns() map[string]interface{} {
	return map[string]interface{}{
		"assigned_user":      "",
		"assigned_user_name": constants.UnassignedUserName,
		"version":            gorm.Expr("version + 1"),
	}
}
