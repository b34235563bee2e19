package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

const (
	msgTitleRequired  = "Title is required."
	msgDueDateInvalid = "Due date is invalid."
)

// Due presets accepted by ListTasks.
const (
	DueToday    = "today"
	DueThisWeek = "this_week"
	DueOverdue  = "overdue"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title        string
	Description  string
	Status       model.TaskStatus
	DueDate      string
	CategoryID   *uint
	CategoryName string
	PriorityID   *uint
}

// TaskPatch is a partial update. Nil pointers and unset Optionals leave the column alone;
// a set Optional with a nil value clears it.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	DueDate     model.Optional[string]
	CategoryID  model.Optional[uint]
	PriorityID  model.Optional[uint]
}

// TaskQuery is the filter configuration of a listing. UserID is mandatory and
// comes from the authenticated identity, never from the client.
type TaskQuery struct {
	UserID     uint
	Status     string
	Search     string
	DueBefore  string
	DueAfter   string
	Due        string
	CategoryID *uint
	PriorityID *uint
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	priorityRepo *repository.PriorityRepository
	now          func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, priorityRepo *repository.PriorityRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, categoryRepo: categoryRepo, priorityRepo: priorityRepo, now: time.Now}
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID uint, input TaskInput) (*model.Task, error) {
	var problems []string
	title := strings.TrimSpace(input.Title)
	if title == "" {
		problems = append(problems, msgTitleRequired)
	}
	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		problems = append(problems, msgDueDateInvalid)
	}
	status := input.Status
	if status == "" {
		status = model.StatusPending
	} else if !status.Valid() {
		problems = append(problems, statusProblem(status))
	}
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}

	categoryID := input.CategoryID
	if categoryID != nil {
		if err := s.checkCategory(ctx, ownerID, *categoryID); err != nil {
			return nil, err
		}
	} else if name := strings.TrimSpace(input.CategoryName); name != "" {
		category, err := s.categoryRepo.GetOrCreate(ctx, ownerID, name)
		if err != nil {
			return nil, err
		}
		categoryID = &category.ID
	}
	if input.PriorityID != nil {
		if err := s.checkPriority(ctx, *input.PriorityID); err != nil {
			return nil, err
		}
	}

	task := model.Task{
		UserID:      ownerID,
		Title:       title,
		Description: input.Description,
		Status:      status,
		DueDate:     dueDate,
		CategoryID:  categoryID,
		PriorityID:  input.PriorityID,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, mapStoreError(err, "task not found")
	}
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, mapStoreError(err, "task not found")
	}
	return task, nil
}

// UpdateTask applies patch; updated_at is refreshed even when the patch is empty.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID uint, patch TaskPatch) (*model.Task, error) {
	updates := map[string]interface{}{}
	var problems []string

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			problems = append(problems, msgTitleRequired)
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			problems = append(problems, statusProblem(*patch.Status))
		}
		updates["status"] = *patch.Status
	}
	if patch.DueDate.Set {
		var raw string
		if patch.DueDate.Value != nil {
			raw = *patch.DueDate.Value
		}
		due, err := parseDueDate(raw)
		if err != nil {
			problems = append(problems, msgDueDateInvalid)
		}
		if due == nil {
			updates["due_date"] = nil
		} else {
			updates["due_date"] = *due
		}
	}
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}

	if patch.CategoryID.Set {
		if patch.CategoryID.Value == nil {
			updates["category_id"] = nil
		} else {
			if err := s.checkCategory(ctx, ownerID, *patch.CategoryID.Value); err != nil {
				return nil, err
			}
			updates["category_id"] = *patch.CategoryID.Value
		}
	}
	if patch.PriorityID.Set {
		if patch.PriorityID.Value == nil {
			updates["priority_id"] = nil
		} else {
			if err := s.checkPriority(ctx, *patch.PriorityID.Value); err != nil {
				return nil, err
			}
			updates["priority_id"] = *patch.PriorityID.Value
		}
	}

	task, err := s.taskRepo.Update(ctx, ownerID, taskID, updates)
	if err != nil {
		return nil, mapStoreError(err, "task not found")
	}
	return task, nil
}

// DeleteTask reports whether a task was removed.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID uint) (bool, error) {
	return s.taskRepo.Delete(ctx, ownerID, taskID)
}

func (s *TaskService) MarkCompleted(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	status := model.StatusCompleted
	return s.UpdateTask(ctx, ownerID, taskID, TaskPatch{Status: &status})
}

// MarkIncomplete moves a task back to the initial status.
func (s *TaskService) MarkIncomplete(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	status := model.StatusPending
	return s.UpdateTask(ctx, ownerID, taskID, TaskPatch{Status: &status})
}

// ListTasks returns the owner's tasks matching q.
func (s *TaskService) ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	if q.UserID == 0 {
		return nil, fmt.Errorf("task listing requires an owner: %w", ErrAuth)
	}
	filter := model.TaskFilter{
		UserID:     q.UserID,
		Search:     strings.TrimSpace(q.Search),
		CategoryID: q.CategoryID,
		PriorityID: q.PriorityID,
	}

	var problems []string
	if status := strings.TrimSpace(q.Status); status != "" && !strings.EqualFold(status, "all") {
		st := model.TaskStatus(status)
		if !st.Valid() {
			problems = append(problems, statusProblem(st))
		}
		filter.Status = st
	}
	before, err := parseDueDate(q.DueBefore)
	if err != nil {
		problems = append(problems, "due_before is invalid.")
	}
	after, err := parseDueDate(q.DueAfter)
	if err != nil {
		problems = append(problems, "due_after is invalid.")
	}
	if !s.applyDuePreset(&filter, strings.TrimSpace(q.Due)) {
		problems = append(problems, fmt.Sprintf("Due must be one of %s, %s or %s.", DueToday, DueThisWeek, DueOverdue))
	}
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}
	// Explicit bounds narrow a preset's window, never widen it.
	if before != nil && (filter.DueBefore == nil || before.Before(*filter.DueBefore)) {
		filter.DueBefore = before
	}
	if after != nil && (filter.DueAfter == nil || after.After(*filter.DueAfter)) {
		filter.DueAfter = after
	}

	return s.taskRepo.List(ctx, filter)
}

// ListOverdue returns unfinished tasks due before today.
func (s *TaskService) ListOverdue(ctx context.Context, ownerID uint) ([]model.Task, error) {
	return s.ListTasks(ctx, TaskQuery{UserID: ownerID, Due: DueOverdue})
}

// applyDuePreset narrows f to the named due window and reports whether the preset is known.
func (s *TaskService) applyDuePreset(f *model.TaskFilter, preset string) bool {
	if preset == "" || preset == "all" {
		return true
	}
	start := startOfDay(s.now())
	switch preset {
	case DueToday:
		after := start.Add(-time.Nanosecond)
		before := start.AddDate(0, 0, 1)
		f.DueAfter, f.DueBefore = &after, &before
	case DueThisWeek:
		after := start.Add(-time.Nanosecond)
		before := start.AddDate(0, 0, 7)
		f.DueAfter, f.DueBefore = &after, &before
	case DueOverdue:
		f.DueBefore = &start
		f.ExcludeStatus = model.StatusCompleted
	default:
		return false
	}
	return true
}

func (s *TaskService) checkCategory(ctx context.Context, ownerID, categoryID uint) error {
	if _, err := s.categoryRepo.GetByID(ctx, ownerID, categoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return badReference("Category does not exist.")
		}
		return err
	}
	return nil
}

func (s *TaskService) checkPriority(ctx context.Context, priorityID uint) error {
	ok, err := s.priorityRepo.Exists(ctx, priorityID)
	if err != nil {
		return err
	}
	if !ok {
		return badReference("Priority does not exist.")
	}
	return nil
}

// parseDueDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// Empty input means "no due date".
func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		return &d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parse due date %q: %w", raw, err)
	}
	ts = ts.UTC()
	return &ts, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func statusProblem(s model.TaskStatus) string {
	return fmt.Sprintf("Status %q is invalid; expected %s, %s or %s.", s, model.StatusPending, model.StatusInProgress, model.StatusCompleted)
}
