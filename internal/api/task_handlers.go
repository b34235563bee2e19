package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

type createTaskRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Status       model.TaskStatus `json:"status"`
	DueDate      *string          `json:"due_date"`
	CategoryID   *uint            `json:"category_id"`
	CategoryName string           `json:"category"`
	PriorityID   *uint            `json:"priority_id"`
}

// updateTaskRequest keeps absent keys apart from explicit nulls.
type updateTaskRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *model.TaskStatus      `json:"status"`
	DueDate     model.Optional[string] `json:"due_date"`
	CategoryID  model.Optional[uint]   `json:"category_id"`
	PriorityID  model.Optional[uint]   `json:"priority_id"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	q := r.URL.Query()

	categoryID, ok := queryUint(w, q.Get("category_id"), "category_id")
	if !ok {
		return
	}
	priorityID, ok := queryUint(w, q.Get("priority_id"), "priority_id")
	if !ok {
		return
	}

	// user_id from the query string is ignored; the token decides.
	tasks, err := s.tasks.ListTasks(r.Context(), service.TaskQuery{
		UserID:     id.UserID,
		Status:     q.Get("status"),
		Search:     q.Get("search"),
		DueBefore:  q.Get("due_before"),
		DueAfter:   q.Get("due_after"),
		Due:        q.Get("due"),
		CategoryID: categoryID,
		PriorityID: priorityID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleListOverdue(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	tasks, err := s.tasks.ListOverdue(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req createTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input := service.TaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		CategoryID:   req.CategoryID,
		CategoryName: req.CategoryName,
		PriorityID:   req.PriorityID,
	}
	if req.DueDate != nil {
		input.DueDate = *req.DueDate
	}
	task, err := s.tasks.CreateTask(r.Context(), id.UserID, input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.GetTask(r.Context(), id.UserID, taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	var req updateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := s.tasks.UpdateTask(r.Context(), id.UserID, taskID, service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
		PriorityID:  req.PriorityID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	removed, err := s.tasks.DeleteTask(r.Context(), id.UserID, taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.MarkCompleted(r.Context(), id.UserID, taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleIncompleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.MarkIncomplete(r.Context(), id.UserID, taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListPriorities(w http.ResponseWriter, r *http.Request) {
	priorities, err := s.priorities.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, priorities)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	categories, err := s.categories.List(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "task id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// queryUint parses an optional numeric filter. Empty means unset.
func queryUint(w http.ResponseWriter, raw, name string) (*uint, bool) {
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return nil, false
	}
	u := uint(v)
	return &u, true
}
