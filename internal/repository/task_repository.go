package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// TaskRepository handles CRUD for tasks. Every lookup and mutation is scoped to an owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", classify(err))
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, fmt.Errorf("find task: %w", classify(err))
	}
	return &task, nil
}

// List returns the tasks matching filter, earliest due date first with undated
// tasks last, newest first within the same due date.
func (r *TaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := applyFilter(r.db.WithContext(ctx), filter).
		Order("due_date ASC NULLS LAST, created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Update writes the given columns and always bumps updated_at.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Task, error) {
	values := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Updates(values)
	if res.Error != nil {
		return nil, fmt.Errorf("update task: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update task: %w", ErrNotFound)
	}
	return r.FindByID(ctx, userID, taskID)
}

// Delete removes a task for the given user and reports whether a row was removed.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// StatusCount is one row of CountByStatus.
type StatusCount struct {
	Status model.TaskStatus
	Count  int64
}

// CountByStatus aggregates all tasks by status.
func (r *TaskRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	return rows, nil
}

// CountOverdue counts unfinished tasks due before the given instant, across all users.
func (r *TaskRepository) CountOverdue(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("due_date < ? AND status <> ?", before, model.StatusCompleted).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count overdue tasks: %w", err)
	}
	return count, nil
}

func applyFilter(db *gorm.DB, f model.TaskFilter) *gorm.DB {
	if f.UserID != 0 {
		db = db.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.ExcludeStatus != "" {
		db = db.Where("status <> ?", f.ExcludeStatus)
	}
	if f.DueBefore != nil {
		db = db.Where("due_date < ?", *f.DueBefore)
	}
	if f.DueAfter != nil {
		db = db.Where("due_date > ?", *f.DueAfter)
	}
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if f.PriorityID != nil {
		db = db.Where("priority_id = ?", *f.PriorityID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		// Both sides are folded with Unicode rules: strings.ToLower here and
		// unicode_lower (sqlite) or LOWER (postgres) in the query.
		lower := "LOWER"
		if db.Dialector.Name() == "sqlite" {
			lower = "unicode_lower"
		}
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		db = db.Where(fmt.Sprintf("(%[1]s(title) LIKE ? ESCAPE '\\' OR %[1]s(COALESCE(description, '')) LIKE ? ESCAPE '\\')", lower), pattern, pattern)
	}
	return db
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
