//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"task-manager/internal/model"
)

// Run with: go test -tags=integration -timeout 180s -run TestPostgres ./internal/repository/...
func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("taskdb"),
		postgres.WithUsername("taskuser"),
		postgres.WithPassword("taskpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := NewDB(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrations are idempotent")
	require.NoError(t, Ping(ctx, db))

	users := NewUserRepository(db)
	tasks := NewTaskRepository(db)
	priorities := NewPriorityRepository(db)

	list, err := priorities.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	alice := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, users.CreateWithDefaultCategory(ctx, alice, model.DefaultCategoryName))

	dup := &model.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, users.CreateWithDefaultCategory(ctx, dup, model.DefaultCategoryName), ErrDuplicate)

	missing := uint(9999)
	err = tasks.Create(ctx, &model.Task{UserID: alice.ID, Title: "bad", Status: model.StatusPending, PriorityID: &missing})
	assert.ErrorIs(t, err, ErrInvalidReference)

	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, task := range []*model.Task{
		{UserID: alice.ID, Title: "no date 100%", Status: model.StatusPending},
		{UserID: alice.ID, Title: "dated", Status: model.StatusPending, DueDate: &due},
	} {
		require.NoError(t, tasks.Create(ctx, task))
	}

	got, err := tasks.List(ctx, model.TaskFilter{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "dated", got[0].Title, "due dates sort before NULLs")

	got, err = tasks.List(ctx, model.TaskFilter{UserID: alice.ID, Search: "100%"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	removed, err := users.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	var remaining int64
	require.NoError(t, db.Model(&model.Task{}).Where("user_id = ?", alice.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}
