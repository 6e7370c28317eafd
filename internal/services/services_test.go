package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	config "task-assignment-api.com/task-assignment-api/internal/configs"
	"task-assignment-api.com/task-assignment-api/internal/constants"
	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
	model "task-assignment-api.com/task-assignment-api/internal/models"
	"task-assignment-api.com/task-assignment-api/internal/query"
	"task-assignment-api.com/task-assignment-api/internal/queue"
	repository "task-assignment-api.com/task-assignment-api/internal/repositories"
)

var errInjected = errors.New("injected pending-task failure")

type fixture struct {
	db     *gorm.DB
	store  *repository.Store
	ledger *queue.MemoryDriftLedger
	tasks  *TaskService
	users  *UserService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := config.NewDatabaseClient(dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = config.CloseDatabaseClient(db) })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, transactional, strict bool) *fixture {
	t.Helper()

	db := setupTestDB(t)
	store := repository.NewStore(db)
	ledger := queue.NewMemoryDriftLedger()
	engine := NewConsistencyEngine(store, ledger, transactional, testLogger())

	return &fixture{
		db:     db,
		store:  store,
		ledger: ledger,
		tasks:  NewTaskService(store, engine, strict, constants.DefaultTaskLimit),
		users:  NewUserService(store, engine),
	}
}

// failPendingWrites makes every insert into or delete from
// user_pending_tasks fail until the returned func is called.
func failPendingWrites(t *testing.T, db *gorm.DB) func() {
	return failPendingWritesAfter(t, db, 0)
}

// failPendingWritesAfter lets the first skip pending-task statements through
// and fails the rest.
func failPendingWritesAfter(t *testing.T, db *gorm.DB, skip int) func() {
	t.Helper()

	seen := 0
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table != "user_pending_tasks" &&
			!strings.Contains(tx.Statement.SQL.String(), "user_pending_tasks") {
			return
		}
		seen++
		if seen > skip {
			_ = tx.AddError(errInjected)
		}
	}
	require.NoError(t, db.Callback().Raw().Before("gorm:raw").Register("test:fail_pending_raw", fail))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_pending_delete", fail))

	return func() {
		_ = db.Callback().Raw().Remove("test:fail_pending_raw")
		_ = db.Callback().Delete().Remove("test:fail_pending_delete")
	}
}

func (f *fixture) createUser(t *testing.T, name, email string) *model.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), UserInput{Name: name, Email: email})
	require.NoError(t, err)
	return user
}

func (f *fixture) createTask(t *testing.T, name, assignee string) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), TaskInput{
		Name:         name,
		Deadline:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		AssignedUser: assignee,
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) pending(t *testing.T, userID string) []string {
	t.Helper()
	user, err := f.users.Get(context.Background(), userID)
	require.NoError(t, err)
	return user.PendingTasks
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateTask_AddsToAssigneePendingTasks(t *testing.T) {
	for _, transactional := range []bool{true, false} {
		t.Run(fmt.Sprintf("transactional=%v", transactional), func(t *testing.T) {
			f := newFixture(t, transactional, false)
			alice := f.createUser(t, "Alice", "a@x.com")

			task := f.createTask(t, "T1", alice.ID)

			assert.Equal(t, []string{task.ID}, f.pending(t, alice.ID))
			assert.Equal(t, "Alice", task.AssignedUserName)
			assert.Equal(t, uint(1), task.Version)
		})
	}
}

func TestCreateTask_ValidatesRequiredFields(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, TaskInput{Name: "  ", Deadline: time.Now()})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = f.tasks.Create(ctx, TaskInput{Name: "T1"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, "Deadline is required.", apperrors.Message(err))
}

func TestCreateTask_OrphanedAssignee(t *testing.T) {
	missing := uuid.NewString()

	t.Run("accepted by default", func(t *testing.T) {
		f := newFixture(t, true, false)
		task := f.createTask(t, "T1", missing)

		stored, err := f.tasks.Get(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, missing, stored.AssignedUser)
		assert.Equal(t, constants.UnassignedUserName, stored.AssignedUserName)
	})

	t.Run("rejected when strict", func(t *testing.T) {
		f := newFixture(t, true, true)
		_, err := f.tasks.Create(context.Background(), TaskInput{
			Name:         "T1",
			Deadline:     time.Now(),
			AssignedUser: missing,
		})
		assert.ErrorIs(t, err, ErrAssigneeNotFound)
	})
}

func TestUpdateTask_ReassignsBetweenUsers(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	bob := f.createUser(t, "Bob", "b@x.com")
	task := f.createTask(t, "T1", alice.ID)

	updated, err := f.tasks.Update(ctx, task.ID, TaskPatch{AssignedUser: ptr(bob.ID)})
	require.NoError(t, err)

	assert.Equal(t, bob.ID, updated.AssignedUser)
	assert.Equal(t, "Bob", updated.AssignedUserName)
	assert.Equal(t, uint(2), updated.Version)
	assert.Empty(t, f.pending(t, alice.ID))
	assert.Equal(t, []string{task.ID}, f.pending(t, bob.ID))
}

func TestUpdateTask_RepeatedAssignmentKeepsSingleEntry(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	task := f.createTask(t, "T1", alice.ID)

	for i := 0; i < 5; i++ {
		_, err := f.tasks.Update(ctx, task.ID, TaskPatch{
			AssignedUser: ptr(alice.ID),
			Completed:    ptr(i%2 == 0),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{task.ID}, f.pending(t, alice.ID))
}

func TestUpdateTask_UnassignIsIdempotent(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	task := f.createTask(t, "T1", alice.ID)

	for i := 0; i < 2; i++ {
		updated, err := f.tasks.Update(ctx, task.ID, TaskPatch{AssignedUser: ptr("")})
		require.NoError(t, err)
		assert.Empty(t, updated.AssignedUser)
		assert.Equal(t, constants.UnassignedUserName, updated.AssignedUserName)
	}

	assert.Empty(t, f.pending(t, alice.ID))
}

func TestUpdateTask_NotFound(t *testing.T) {
	f := newFixture(t, true, false)

	_, err := f.tasks.Update(context.Background(), uuid.NewString(), TaskPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}

func TestDeleteTask_RemovesFromPendingTasks(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	keep := f.createTask(t, "keep", alice.ID)
	drop := f.createTask(t, "drop", alice.ID)

	require.NoError(t, f.tasks.Delete(ctx, drop.ID))

	assert.Equal(t, []string{keep.ID}, f.pending(t, alice.ID))
	_, err := f.tasks.Get(ctx, drop.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
	assert.ErrorIs(t, f.tasks.Delete(ctx, drop.ID), apperrors.ErrTaskNotFound)
}

func TestDeleteUser_UnassignsEveryTask(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	bob := f.createUser(t, "Bob", "b@x.com")
	listed := f.createTask(t, "listed", bob.ID)
	drifted := f.createTask(t, "drifted", bob.ID)

	// Drop one entry behind the engine's back; the cascade must still reach it.
	require.NoError(t, f.store.Users().RemovePendingTask(ctx, bob.ID, drifted.ID))

	require.NoError(t, f.users.Delete(ctx, bob.ID))

	for _, id := range []string{listed.ID, drifted.ID} {
		task, err := f.tasks.Get(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, task.AssignedUser)
		assert.Equal(t, constants.UnassignedUserName, task.AssignedUserName)
	}

	_, err := f.users.Get(ctx, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.ErrorIs(t, f.users.Delete(ctx, bob.ID), apperrors.ErrUserNotFound)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	f.createUser(t, "Alice", "a@x.com")

	_, err := f.users.Create(ctx, UserInput{Name: "Other", Email: "a@x.com"})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
	assert.Equal(t, 400, apperrors.StatusCode(err))

	ids, err := f.store.Users().ListIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestUpdateUser_EmailUniqueness(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	f.createUser(t, "Bob", "b@x.com")

	_, err := f.users.Update(ctx, alice.ID, UserPatch{Email: ptr("b@x.com")})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)

	updated, err := f.users.Update(ctx, alice.ID, UserPatch{Email: ptr("a@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", updated.Email)
}

func TestUpdateUser_RenamePropagatesToTasks(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	task := f.createTask(t, "T1", alice.ID)

	_, err := f.users.Update(ctx, alice.ID, UserPatch{Name: ptr("Alicia")})
	require.NoError(t, err)

	stored, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", stored.AssignedUserName)
}

func TestUpdateUser_RenameKeepsExplicitTaskNames(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	plain := f.createTask(t, "plain", alice.ID)
	labelled, err := f.tasks.Create(ctx, TaskInput{
		Name:             "labelled",
		Deadline:         time.Now(),
		AssignedUser:     alice.ID,
		AssignedUserName: ptr("Team lead"),
	})
	require.NoError(t, err)

	_, err = f.users.Update(ctx, alice.ID, UserPatch{Name: ptr("Alicia")})
	require.NoError(t, err)

	stored, err := f.tasks.Get(ctx, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", stored.AssignedUserName)

	stored, err = f.tasks.Get(ctx, labelled.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team lead", stored.AssignedUserName)
}

func TestUpdateUser_PendingTasksEditReassigns(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	bob := f.createUser(t, "Bob", "b@x.com")
	mine := f.createTask(t, "mine", alice.ID)
	theirs := f.createTask(t, "theirs", bob.ID)

	updated, err := f.users.Update(ctx, alice.ID, UserPatch{PendingTasks: ptr([]string{theirs.ID})})
	require.NoError(t, err)
	assert.Equal(t, []string{theirs.ID}, updated.PendingTasks)

	assert.Equal(t, []string{theirs.ID}, f.pending(t, alice.ID))
	assert.Empty(t, f.pending(t, bob.ID))

	moved, err := f.tasks.Get(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, moved.AssignedUser)
	assert.Equal(t, "Alice", moved.AssignedUserName)

	dropped, err := f.tasks.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Empty(t, dropped.AssignedUser)
}

func TestCreateUser_UnknownPendingTask(t *testing.T) {
	f := newFixture(t, true, false)

	_, err := f.users.Create(context.Background(), UserInput{
		Name:         "Alice",
		Email:        "a@x.com",
		PendingTasks: []string{uuid.NewString()},
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCreateUser_WithPendingTasksClaimsThem(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	task := f.createTask(t, "T1", "")

	user, err := f.users.Create(ctx, UserInput{
		Name:         "Carol",
		Email:        "c@x.com",
		PendingTasks: []string{task.ID, task.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, user.PendingTasks)

	stored, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.AssignedUser)
	assert.Equal(t, "Carol", stored.AssignedUserName)
}

func TestReciprocalFailure_NonTransactionalKeepsPrimaryWrite(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")

	restore := failPendingWrites(t, f.db)
	task, err := f.tasks.Create(ctx, TaskInput{Name: "T1", Deadline: time.Now(), AssignedUser: alice.ID})
	restore()

	rec, ok := apperrors.AsReciprocal(err)
	require.True(t, ok)
	assert.Equal(t, alice.ID, rec.UserID)
	require.NotNil(t, task)

	_, err = f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, f.pending(t, alice.ID))

	size, err := f.ledger.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestReciprocalFailure_TransactionalRollsBack(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")

	restore := failPendingWrites(t, f.db)
	_, err := f.tasks.Create(ctx, TaskInput{Name: "T1", Deadline: time.Now(), AssignedUser: alice.ID})
	restore()

	require.Error(t, err)
	_, isReciprocal := apperrors.AsReciprocal(err)
	assert.False(t, isReciprocal)
	assert.Equal(t, apperrors.KindStoreUnavailable, apperrors.KindOf(err))

	count, err := f.store.Tasks().Count(ctx, query.Options{})
	require.NoError(t, err)
	assert.Zero(t, count)

	size, err := f.ledger.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestReconcile_RepairsDriftFromLedger(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	bob := f.createUser(t, "Bob", "b@x.com")
	task := f.createTask(t, "T1", alice.ID)

	restore := failPendingWrites(t, f.db)
	_, err := f.tasks.Update(ctx, task.ID, TaskPatch{AssignedUser: ptr(bob.ID)})
	restore()
	_, ok := apperrors.AsReciprocal(err)
	require.True(t, ok)

	// Alice still lists the task and Bob does not.
	assert.Equal(t, []string{task.ID}, f.pending(t, alice.ID))
	assert.Empty(t, f.pending(t, bob.ID))

	// Both sides of the move are recorded even though Bob's was never tried.
	size, err := f.ledger.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	reconciler := NewReconcileService(f.store, f.ledger, 3, false, testLogger())
	report, err := reconciler.DrainLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Checked)
	assert.Equal(t, int64(2), report.Repaired)
	assert.Empty(t, f.pending(t, alice.ID))
	assert.Equal(t, []string{task.ID}, f.pending(t, bob.ID))

	size, err = f.ledger.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	report, err = reconciler.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Checked)
	assert.Zero(t, report.Repaired)
}

func TestReconcile_RepairsFailedPendingTasksEdit(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	alice := f.createUser(t, "Alice", "a@x.com")
	bob := f.createUser(t, "Bob", "b@x.com")
	theirs := f.createTask(t, "theirs", bob.ID)

	// The list replacement goes through; taking the task off Bob fails.
	restore := failPendingWritesAfter(t, f.db, 1)
	_, err := f.users.Update(ctx, alice.ID, UserPatch{PendingTasks: ptr([]string{theirs.ID})})
	restore()
	rec, ok := apperrors.AsReciprocal(err)
	require.True(t, ok)
	assert.Equal(t, bob.ID, rec.UserID)
	assert.Equal(t, []string{theirs.ID}, f.pending(t, alice.ID))

	size, err := f.ledger.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	_, err = NewReconcileService(f.store, f.ledger, 2, false, testLogger()).DrainLedger(ctx)
	require.NoError(t, err)

	stored, err := f.tasks.Get(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, stored.AssignedUser)
	assert.Empty(t, f.pending(t, alice.ID))
	assert.Equal(t, []string{theirs.ID}, f.pending(t, bob.ID))
}

func TestReconcile_Orphans(t *testing.T) {
	f := newFixture(t, true, false)
	ctx := context.Background()
	ghost := uuid.NewString()
	task := f.createTask(t, "T1", ghost)

	report := NewReconcileService(f.store, nil, 2, false, testLogger()).Run(ctx, []string{ghost})
	assert.Equal(t, int64(1), report.Orphans)

	stored, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, ghost, stored.AssignedUser)

	report = NewReconcileService(f.store, nil, 2, true, testLogger()).Run(ctx, []string{ghost})
	assert.Equal(t, int64(1), report.Orphans)

	stored, err = f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssignedUser)
}
