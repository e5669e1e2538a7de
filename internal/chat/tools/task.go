package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/types"
)

// CreateTask inserts a planner task for the current user.
type CreateTask struct {
	tasks types.TaskStore
}

func NewCreateTask(tasks types.TaskStore) *CreateTask { return &CreateTask{tasks: tasks} }

func (t *CreateTask) Name() string { return "create_task" }
func (t *CreateTask) Description() string {
	return "Create a new task in the user's planner"
}
func (t *CreateTask) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "Task title"},
			"description": {"type": "string", "description": "Optional task details"},
			"dueDate": {"type": "string", "description": "Optional due date, e.g. 2025-03-01 or 'tomorrow'"}
		},
		"required": ["title"]
	}`)
}

func (t *CreateTask) Execute(ctx context.Context, tctx chat.ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"dueDate"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if params.Title == "" {
		return &types.ToolResult{Success: false, Error: "title is required"}, nil
	}

	task := &types.Task{
		ID:     types.NewTaskID(),
		UserID: tctx.UserID,
		Title:  params.Title,
	}
	task.Description = params.Description

	// An unparseable due date never fails the call; the task is created
	// without one and the caller is warned.
	var warning string
	if params.DueDate != "" {
		if due, ok := parseDueDate(params.DueDate); ok {
			task.DueDate = &due
		} else {
			warning = fmt.Sprintf("could not parse due date %q; task created without one", params.DueDate)
		}
	}

	if err := t.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Task %q created.", task.Title),
		Warning: warning,
		Data:    map[string]any{"task_id": string(task.ID)},
	}, nil
}

// GetTasks lists the user's tasks, optionally filtered by completion.
type GetTasks struct {
	tasks types.TaskStore
}

func NewGetTasks(tasks types.TaskStore) *GetTasks { return &GetTasks{tasks: tasks} }

func (t *GetTasks) Name() string { return "get_tasks" }
func (t *GetTasks) Description() string {
	return "List the user's tasks, optionally filtered by completion status"
}
func (t *GetTasks) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"completed": {"type": "boolean", "description": "Only tasks with this completion status"}
		}
	}`)
}

func (t *GetTasks) Execute(ctx context.Context, tctx chat.ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Completed any `json:"completed"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	filter := types.TaskFilter{}
	if params.Completed != nil {
		completed, err := asBool(params.Completed)
		if err != nil {
			return &types.ToolResult{Success: false, Error: fmt.Sprintf("completed must be a boolean: %v", err)}, nil
		}
		filter.Completed = &completed
	}

	tasks, err := t.tasks.List(ctx, tctx.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if len(tasks) == 0 {
		return &types.ToolResult{Success: true, Message: "No tasks found."}, nil
	}

	entries := make([]map[string]any, len(tasks))
	for i, task := range tasks {
		entry := map[string]any{
			"id":        string(task.ID),
			"title":     task.Title,
			"completed": task.Completed,
		}
		if task.Description != "" {
			entry["description"] = task.Description
		}
		if task.DueDate != nil {
			entry["due_date"] = task.DueDate.Format(time.RFC3339)
		}
		entries[i] = entry
	}

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("%d tasks found.", len(tasks)),
		Data:    map[string]any{"tasks": entries},
	}, nil
}

// UpdateTask applies field changes to a task located by id or exact title.
type UpdateTask struct {
	tasks types.TaskStore
}

func NewUpdateTask(tasks types.TaskStore) *UpdateTask { return &UpdateTask{tasks: tasks} }

func (t *UpdateTask) Name() string { return "update_task" }
func (t *UpdateTask) Description() string {
	return "Update an existing task, located by its id or exact title"
}
func (t *UpdateTask) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"taskId": {"type": "string", "description": "Task id"},
			"title": {"type": "string", "description": "Exact title of the task to update (when taskId is unknown)"},
			"newTitle": {"type": "string", "description": "New title"},
			"description": {"type": "string", "description": "New description"},
			"dueDate": {"type": "string", "description": "New due date"},
			"completed": {"type": "boolean", "description": "New completion status"}
		}
	}`)
}

func (t *UpdateTask) Execute(ctx context.Context, tctx chat.ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		TaskID      string  `json:"taskId"`
		Title       string  `json:"title"`
		NewTitle    *string `json:"newTitle"`
		Description *string `json:"description"`
		DueDate     *string `json:"dueDate"`
		Completed   any     `json:"completed"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	if params.NewTitle == nil && params.Description == nil && params.DueDate == nil && params.Completed == nil {
		return &types.ToolResult{Success: false, Error: "no field changes supplied"}, nil
	}

	task, failure, err := findTask(ctx, t.tasks, tctx.UserID, params.TaskID, params.Title)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}

	var warning string
	if params.NewTitle != nil && *params.NewTitle != "" {
		task.Title = *params.NewTitle
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.DueDate != nil && *params.DueDate != "" {
		if due, ok := parseDueDate(*params.DueDate); ok {
			task.DueDate = &due
		} else {
			// Other field changes still apply.
			warning = fmt.Sprintf("could not parse due date %q; due date unchanged", *params.DueDate)
		}
	}
	if params.Completed != nil {
		completed, err := asBool(params.Completed)
		if err != nil {
			return &types.ToolResult{Success: false, Error: fmt.Sprintf("completed must be a boolean: %v", err)}, nil
		}
		task.Completed = completed
	}

	if err := t.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Task %q updated.", task.Title),
		Warning: warning,
		Data:    map[string]any{"task_id": string(task.ID)},
	}, nil
}

// DeleteTask removes a task located by id or exact title.
type DeleteTask struct {
	tasks types.TaskStore
}

func NewDeleteTask(tasks types.TaskStore) *DeleteTask { return &DeleteTask{tasks: tasks} }

func (t *DeleteTask) Name() string { return "delete_task" }
func (t *DeleteTask) Description() string {
	return "Delete a task, located by its id or exact title"
}
func (t *DeleteTask) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"taskId": {"type": "string", "description": "Task id"},
			"title": {"type": "string", "description": "Exact title of the task to delete (when taskId is unknown)"}
		}
	}`)
}

func (t *DeleteTask) Execute(ctx context.Context, tctx chat.ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		TaskID string `json:"taskId"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	task, failure, err := findTask(ctx, t.tasks, tctx.UserID, params.TaskID, params.Title)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}

	if err := t.tasks.Delete(ctx, tctx.UserID, task.ID); err != nil {
		if errors.Is(err, types.ErrTaskNotFound) {
			return &types.ToolResult{Success: false, Error: "task not found"}, nil
		}
		return nil, fmt.Errorf("delete task: %w", err)
	}

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Task %q deleted.", task.Title),
	}, nil
}

// findTask resolves a task by id first, then by exact title. A nil task
// with a non-nil failure result means "not found" (or no identifier given).
func findTask(ctx context.Context, tasks types.TaskStore, userID types.UserID, taskID, title string) (*types.Task, *types.ToolResult, error) {
	if taskID != "" {
		task, err := tasks.Get(ctx, userID, types.TaskID(taskID))
		if err == nil {
			return task, nil, nil
		}
		if !errors.Is(err, types.ErrTaskNotFound) {
			return nil, nil, fmt.Errorf("find task: %w", err)
		}
		// Fall through: the model sometimes puts a title in taskId.
		if title == "" {
			title = taskID
		}
	}
	if title == "" {
		return nil, &types.ToolResult{Success: false, Error: "task not found: no taskId or title given"}, nil
	}
	task, err := tasks.FindByTitle(ctx, userID, title)
	if err != nil {
		if errors.Is(err, types.ErrTaskNotFound) {
			return nil, &types.ToolResult{Success: false, Error: fmt.Sprintf("task %q not found", title)}, nil
		}
		return nil, nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil, nil
}
