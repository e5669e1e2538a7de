// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dostify/dostify/internal/notify"
	"github.com/dostify/dostify/internal/types"
)

// Scheduler periodically scans for tasks coming due and sends each owner a
// reminder. A task is reminded at most once.
type Scheduler struct {
	tasks    types.TaskStore
	users    types.UserStore
	notifier *notify.Registry
	cron     *cron.Cron

	spec      string
	lookahead time.Duration

	mu       sync.Mutex
	reminded map[types.TaskID]bool
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler that fires on the given cron spec and reminds
// owners of incomplete tasks due within lookahead.
func New(tasks types.TaskStore, users types.UserStore, notifier *notify.Registry, spec string, lookahead time.Duration) *Scheduler {
	return &Scheduler{
		tasks:     tasks,
		users:     users,
		notifier:  notifier,
		cron:      cron.New(cron.WithParser(cronParser)),
		spec:      spec,
		lookahead: lookahead,
		reminded:  make(map[types.TaskID]bool),
	}
}

// Start registers the reminder sweep as a cron entry and starts the ticker.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.spec, err)
	}
	slog.Info("scheduled task reminders", "spec", s.spec, "lookahead", s.lookahead)
	s.cron.Start()
	return nil
}

// Sweep runs one reminder pass. Exported so a sweep can be triggered
// directly without waiting on the ticker.
func (s *Scheduler) Sweep(ctx context.Context) {
	due, err := s.tasks.DueSoon(ctx, time.Now().Add(s.lookahead))
	if err != nil {
		slog.Error("due task scan failed", "error", err)
		return
	}

	for _, task := range due {
		if s.alreadyReminded(task.ID) {
			continue
		}
		user, err := s.users.GetByID(ctx, task.UserID)
		if err != nil {
			slog.Warn("reminder owner lookup failed", "task_id", task.ID, "error", err)
			continue
		}

		msg := reminderMessage(task)
		if err := s.notifier.Notify(ctx, user, msg); err != nil {
			slog.Warn("reminder delivery failed", "task_id", task.ID, "error", err)
			continue
		}
		s.markReminded(task.ID)
		slog.Info("reminder sent", "task_id", task.ID, "user_id", user.ID)
	}
}

func reminderMessage(task *types.Task) string {
	due := "soon"
	if task.DueDate != nil {
		due = task.DueDate.Format("Mon Jan 2 15:04")
	}
	return fmt.Sprintf("Reminder: %q is due %s.", task.Title, due)
}

func (s *Scheduler) alreadyReminded(id types.TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminded[id]
}

func (s *Scheduler) markReminded(id types.TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminded[id] = true
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
