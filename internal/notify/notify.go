// Package notify routes reminder messages to the channels a user has
// connected.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dostify/dostify/internal/types"
)

// Sender delivers one message to a user over a single channel. CanNotify
// reports whether the user has that channel configured.
type Sender interface {
	Name() string
	CanNotify(user *types.User) bool
	Send(ctx context.Context, user *types.User, message string) error
}

// Registry fans a notification out to the first sender that can reach the
// user.
type Registry struct {
	mu      sync.RWMutex
	senders []Sender
}

// NewRegistry creates an empty notification registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a sender. Senders are tried in registration order.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders = append(r.senders, s)
}

// Notify delivers the message through the first sender that can reach the
// user. Returns an error when no sender can.
func (r *Registry) Notify(ctx context.Context, user *types.User, message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.senders {
		if s.CanNotify(user) {
			if err := s.Send(ctx, user, message); err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		}
	}
	return fmt.Errorf("no notification channel for user %s", user.ID)
}

// Log is a fallback sender that writes reminders to the log. It always
// reports reachable, so it belongs last in the registry.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (l *Log) Name() string { return "log" }

func (l *Log) CanNotify(user *types.User) bool { return true }

func (l *Log) Send(_ context.Context, user *types.User, text string) error {
	slog.Info("reminder (no channel configured)", "user_id", user.ID, "message", text)
	return nil
}
