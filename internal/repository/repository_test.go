package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"task-manager/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxIdleTime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Username: "user", Email: email, PasswordHash: "hash"}
	require.NoError(t, NewUserRepository(db).CreateWithDefaultCategory(context.Background(), user, model.DefaultCategoryName))
	return user
}

func date(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestUserRepository_CreateSeedsDefaultCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "a@example.com")

	categories, err := NewCategoryRepository(db).ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, model.DefaultCategoryName, categories[0].Name)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createUser(t, db, "dup@example.com")

	err := NewUserRepository(db).CreateWithDefaultCategory(context.Background(),
		&model.User{Username: "other", Email: "dup@example.com", PasswordHash: "x"}, model.DefaultCategoryName)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_FindMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_UpdateProfileAndPassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	user := createUser(t, db, "old@example.com")

	name := "renamed"
	updated, err := repo.UpdateProfile(ctx, user.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Username)
	assert.Equal(t, "old@example.com", updated.Email)

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", found.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, 999, "x"), ErrNotFound)
}

func TestUserRepository_DeleteCascadesTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "gone@example.com")
	tasks := NewTaskRepository(db)
	require.NoError(t, tasks.Create(ctx, &model.Task{Title: "t", Status: model.StatusPending, UserID: user.ID}))

	removed, err := NewUserRepository(db).Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	list, err := tasks.List(ctx, model.TaskFilter{UserID: user.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	removed, err = NewUserRepository(db).Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPriorityRepository_SeedIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPriorityRepository(db)

	require.NoError(t, repo.SeedDefaults(ctx))
	priorities, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, priorities, 3)
	assert.Equal(t, "Low", priorities[0].Name)
	assert.Equal(t, "High", priorities[2].Name)

	ok, err := repo.Exists(ctx, priorities[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategoryRepository_GetOrCreateAndOwnership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepository(db)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	work, err := repo.GetOrCreate(ctx, alice.ID, "Work")
	require.NoError(t, err)
	again, err := repo.GetOrCreate(ctx, alice.ID, "Work")
	require.NoError(t, err)
	assert.Equal(t, work.ID, again.ID)

	_, err = repo.GetByID(ctx, bob.ID, work.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_InvalidReference(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "fk@example.com")
	missing := uint(999)

	err := NewTaskRepository(db).Create(context.Background(), &model.Task{
		Title: "t", Status: model.StatusPending, UserID: user.ID, PriorityID: &missing,
	})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestTaskRepository_ListOrderingAndFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	seed := []model.Task{
		{Title: "no date", Status: model.StatusPending, UserID: alice.ID},
		{Title: "late", Description: "Pay the BILL", Status: model.StatusPending, UserID: alice.ID, DueDate: date(2025, 3, 1)},
		{Title: "early", Status: model.StatusCompleted, UserID: alice.ID, DueDate: date(2025, 1, 1)},
		{Title: "100% done_ok", Status: model.StatusInProgress, UserID: alice.ID, DueDate: date(2025, 2, 1)},
		{Title: "bob's", Status: model.StatusPending, UserID: bob.ID},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	all, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"early", "100% done_ok", "late", "no date"}, titles(all))

	byStatus, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID, Status: model.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, []string{"late", "no date"}, titles(byStatus))

	search, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID, Search: "bill"})
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, titles(search))

	literal, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID, Search: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% done_ok"}, titles(literal))

	underscore, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID, Search: "o_e"})
	require.NoError(t, err)
	assert.Empty(t, underscore)

	bounded, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID, DueAfter: date(2025, 1, 15), DueBefore: date(2025, 2, 15)})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% done_ok"}, titles(bounded))

	open, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID, ExcludeStatus: model.StatusCompleted, DueBefore: date(2025, 12, 31)})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% done_ok", "late"}, titles(open))

	accented := model.Task{Title: "ÉTÉ planning", Description: "Über Straße", Status: model.StatusPending, UserID: alice.ID}
	require.NoError(t, repo.Create(ctx, &accented))
	for _, term := range []string{"été", "ÉTÉ", "Été plan", "über", "STRAßE"} {
		found, err := repo.List(ctx, model.TaskFilter{UserID: alice.ID, Search: term})
		require.NoError(t, err)
		assert.Equal(t, []string{"ÉTÉ planning"}, titles(found), term)
	}
}

func TestTaskRepository_UpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	task := &model.Task{Title: "before", Status: model.StatusPending, UserID: alice.ID}
	require.NoError(t, repo.Create(ctx, task))
	time.Sleep(5 * time.Millisecond)

	updated, err := repo.Update(ctx, alice.ID, task.ID, map[string]interface{}{"title": "after"})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	_, err = repo.Update(ctx, bob.ID, task.ID, map[string]interface{}{"title": "stolen"})
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := repo.Delete(ctx, bob.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.Delete(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = repo.FindByID(ctx, alice.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_Counts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	user := createUser(t, db, "c@example.com")

	for _, tk := range []model.Task{
		{Title: "a", Status: model.StatusPending, UserID: user.ID, DueDate: date(2020, 1, 1)},
		{Title: "b", Status: model.StatusPending, UserID: user.ID},
		{Title: "c", Status: model.StatusCompleted, UserID: user.ID, DueDate: date(2020, 1, 1)},
	} {
		tk := tk
		require.NoError(t, repo.Create(ctx, &tk))
	}

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	got := map[model.TaskStatus]int64{}
	for _, c := range counts {
		got[c.Status] = c.Count
	}
	assert.Equal(t, int64(2), got[model.StatusPending])
	assert.Equal(t, int64(1), got[model.StatusCompleted])

	overdue, err := repo.CountOverdue(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), overdue)
}

func titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
