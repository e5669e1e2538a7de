package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dostify/dostify/internal/types"
)

// TaskStore is the PostgreSQL types.TaskStore.
type TaskStore struct {
	db *pgxpool.Pool
}

func NewTaskStore(db *pgxpool.Pool) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = "id, user_id, title, description, due_date, completed, created_at, updated_at"

func scanTask(row pgx.Row) (*types.Task, error) {
	var task types.Task
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.DueDate, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskStore) Create(ctx context.Context, task *types.Task) error {
	if task.ID == "" {
		task.ID = types.NewTaskID()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = task.CreatedAt

	_, err := s.db.Exec(ctx,
		`INSERT INTO tasks (id, user_id, title, description, due_date, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.UserID, task.Title, task.Description,
		task.DueDate, task.Completed, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *TaskStore) Get(ctx context.Context, userID types.UserID, id types.TaskID) (*types.Task, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE user_id = $1 AND id = $2`,
		userID, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *TaskStore) FindByTitle(ctx context.Context, userID types.UserID, title string) (*types.Task, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE user_id = $1 AND title = $2
		 ORDER BY created_at LIMIT 1`,
		userID, title)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

func (s *TaskStore) List(ctx context.Context, userID types.UserID, filter types.TaskFilter) ([]*types.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		q += fmt.Sprintf(" AND completed = $%d", len(args))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		q += fmt.Sprintf(" AND due_date IS NOT NULL AND due_date < $%d", len(args))
	}
	q += " ORDER BY due_date ASC NULLS LAST, created_at ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *TaskStore) Update(ctx context.Context, task *types.Task) error {
	task.UpdatedAt = time.Now()
	tag, err := s.db.Exec(ctx,
		`UPDATE tasks SET title = $3, description = $4, due_date = $5, completed = $6, updated_at = $7
		 WHERE user_id = $1 AND id = $2`,
		task.UserID, task.ID, task.Title, task.Description,
		task.DueDate, task.Completed, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, userID types.UserID, id types.TaskID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM tasks WHERE user_id = $1 AND id = $2`,
		userID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) DueSoon(ctx context.Context, cutoff time.Time) ([]*types.Task, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+taskCols+` FROM tasks
		 WHERE NOT completed AND due_date IS NOT NULL AND due_date <= $1
		 ORDER BY due_date`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("due tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows pgx.Rows) ([]*types.Task, error) {
	var out []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}
