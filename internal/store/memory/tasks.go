package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dostify/dostify/internal/types"
)

// TaskStore is an in-memory types.TaskStore.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[types.TaskID]*types.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[types.TaskID]*types.Task)}
}

func (s *TaskStore) Create(_ context.Context, task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = types.NewTaskID()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	c := *task
	s.tasks[task.ID] = &c
	return nil
}

func (s *TaskStore) Get(_ context.Context, userID types.UserID, id types.TaskID) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return nil, types.ErrTaskNotFound
	}
	c := *task
	return &c, nil
}

func (s *TaskStore) FindByTitle(_ context.Context, userID types.UserID, title string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, task := range s.tasks {
		if task.UserID == userID && task.Title == title {
			c := *task
			return &c, nil
		}
	}
	return nil, types.ErrTaskNotFound
}

func (s *TaskStore) List(_ context.Context, userID types.UserID, filter types.TaskFilter) ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.Task
	for _, task := range s.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		if filter.DueBefore != nil && (task.DueDate == nil || task.DueDate.After(*filter.DueBefore)) {
			continue
		}
		c := *task
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*types.Task{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *TaskStore) Update(_ context.Context, task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return types.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now()
	c := *task
	s.tasks[task.ID] = &c
	return nil
}

func (s *TaskStore) Delete(_ context.Context, userID types.UserID, id types.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return types.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *TaskStore) DueSoon(_ context.Context, cutoff time.Time) ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.Task
	for _, task := range s.tasks {
		if task.Completed || task.DueDate == nil || task.DueDate.After(cutoff) {
			continue
		}
		c := *task
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.Before(*result[j].DueDate)
	})
	return result, nil
}
