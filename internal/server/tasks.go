package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dostify/dostify/internal/types"
)

type taskView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func viewTask(t *types.Task) taskView {
	return taskView{
		ID:          string(t.ID),
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// parseAPIDate accepts RFC3339 or a bare date.
func parseAPIDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	task := &types.Task{
		ID:          types.NewTaskID(),
		UserID:      mustUser(r),
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate != "" {
		due, err := parseAPIDate(req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due_date")
			return
		}
		task.DueDate = &due
	}

	if err := s.tasks.Create(r.Context(), task); err != nil {
		slog.Error("create task failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, viewTask(task))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter := types.TaskFilter{}
	if q := r.URL.Query().Get("completed"); q != "" {
		completed := q == "true"
		filter.Completed = &completed
	}
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if q := r.URL.Query().Get("offset"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	tasks, err := s.tasks.List(r.Context(), mustUser(r), filter)
	if err != nil {
		slog.Error("list tasks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, viewTask(task))
	}
	writeJSON(w, http.StatusOK, views)
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Completed   *bool   `json:"completed"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	userID := mustUser(r)
	task, err := s.tasks.Get(r.Context(), userID, types.TaskID(r.PathValue("id")))
	if err != nil {
		if errors.Is(err, types.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		slog.Error("load task failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if req.Title != nil && *req.Title != "" {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			due, err := parseAPIDate(*req.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid due_date")
				return
			}
			task.DueDate = &due
		}
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := s.tasks.Update(r.Context(), task); err != nil {
		slog.Error("update task failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, viewTask(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	err := s.tasks.Delete(r.Context(), mustUser(r), types.TaskID(r.PathValue("id")))
	if err != nil {
		if errors.Is(err, types.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		slog.Error("delete task failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
