package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	model "task-assignment-api.com/task-assignment-api/internal/models"
	"task-assignment-api.com/task-assignment-api/internal/query"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores the user record and its initial pendingTasks entries.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.DateCreated.IsZero() {
		user.DateCreated = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return replacePending(tx, user.ID, user.PendingTasks)
	})
	if err != nil {
		return r.duplicate(ctx, translate(err, nil), user)
	}

	if user.PendingTasks == nil {
		user.PendingTasks = []string{}
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound)
	}

	users := []model.User{user}
	if err := r.hydrate(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

// FindByEmail returns the user owning email other than excludeID.
func (r *UserRepository) FindByEmail(ctx context.Context, email, excludeID string) (*model.User, error) {
	var user model.User
	q := r.db.WithContext(ctx).Where("email = ?", email)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.First(&user).Error; err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&n).Error
	if err != nil {
		return false, translate(err, nil)
	}
	return n > 0, nil
}

func (r *UserRepository) Find(ctx context.Context, opts query.Options) ([]model.User, error) {
	users := []model.User{}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Scopes(opts.Page(0)).Find(&users).Error; err != nil {
		return nil, translate(err, nil)
	}
	if err := r.hydrate(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context, opts query.Options) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Scopes(opts.Where()).Count(&total).Error
	if err != nil {
		return 0, translate(err, nil)
	}
	return opts.Window(total), nil
}

// ListIDs returns every user id.
func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&model.User{}).Order("date_created asc, id asc").Pluck("id", &ids).Error
	return ids, translate(err, nil)
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":  user.Name,
			"email": user.Email,
		})
	if res.Error != nil {
		return r.duplicate(ctx, translate(res.Error, nil), user)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// duplicate reports ErrEmailExists for a unique violation caused by another
// user holding user's email. Other errors are returned as they are.
func (r *UserRepository) duplicate(ctx context.Context, err error, user *model.User) error {
	if !errors.Is(err, apperrors.ErrDuplicate) {
		return err
	}

	var n int64
	if cerr := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? AND id <> ?", user.Email, user.ID).
		Count(&n).Error; cerr != nil {
		return err
	}
	if n > 0 {
		return apperrors.ErrEmailExists
	}
	return err
}

// Delete removes the user record together with its pendingTasks entries.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.PendingTask{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrUserNotFound
		}
		return nil
	})
	return translate(err, nil)
}

// AddPendingTask appends taskID to the user's pendingTasks as one atomic
// statement. Adding an id already present is a no-op. The returned bool is
// false when no such user exists.
func (r *UserRepository) AddPendingTask(ctx context.Context, userID, taskID string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO user_pending_tasks (user_id, task_id)
		SELECT ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)
		ON CONFLICT (user_id, task_id) DO NOTHING`,
		userID, taskID, userID,
	)
	if res.Error != nil {
		return false, translate(res.Error, nil)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	return r.Exists(ctx, userID)
}

// RemovePendingTask drops taskID from the user's pendingTasks. Removing an
// absent id is a no-op.
func (r *UserRepository) RemovePendingTask(ctx context.Context, userID, taskID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Delete(&model.PendingTask{}).Error
	return translate(err, nil)
}

// ReplacePendingTasks makes the user's pendingTasks exactly taskIDs, in
// that order.
func (r *UserRepository) ReplacePendingTasks(ctx context.Context, userID string, taskIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.PendingTask{}).Error; err != nil {
			return err
		}
		return replacePending(tx, userID, taskIDs)
	})
	return translate(err, nil)
}

func replacePending(tx *gorm.DB, userID string, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	entries := make([]model.PendingTask, 0, len(taskIDs))
	for _, id := range dedupe(taskIDs) {
		entries = append(entries, model.PendingTask{UserID: userID, TaskID: id})
	}
	return tx.Create(&entries).Error
}

func (r *UserRepository) hydrate(ctx context.Context, users []model.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID
		users[i].PendingTasks = []string{}
	}

	var entries []model.PendingTask
	err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Order("id asc").Find(&entries).Error
	if err != nil {
		return translate(err, nil)
	}

	index := make(map[string]int, len(users))
	for i := range users {
		index[users[i].ID] = i
	}
	for _, e := range entries {
		i := index[e.UserID]
		users[i].PendingTasks = append(users[i].PendingTasks, e.TaskID)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
