// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// SessionStore persists conversation threads. Sessions are addressed by the
// owning user plus the caller-supplied session key.
type SessionStore interface {
	// GetOrCreate returns the session for (userID, key), creating an empty
	// one if absent. The returned session carries its full message sequence.
	GetOrCreate(ctx context.Context, userID UserID, key string) (*Session, error)
	// Get returns the session with messages, or ErrSessionNotFound.
	Get(ctx context.Context, userID UserID, key string) (*Session, error)
	// List returns the user's sessions without messages, newest activity
	// first, with MessageCount populated.
	List(ctx context.Context, userID UserID) ([]*Session, error)
	// Search returns sessions whose title or message content matches query.
	Search(ctx context.Context, userID UserID, query string) ([]*Session, error)
	Rename(ctx context.Context, userID UserID, key, title string) error
	Delete(ctx context.Context, userID UserID, key string) error
	// AppendMessages durably appends messages in order and bumps the
	// session's last-activity timestamp.
	AppendMessages(ctx context.Context, userID UserID, key string, msgs []Message) error
	// SetFeedback applies an addressed update to a single message's rating.
	SetFeedback(ctx context.Context, userID UserID, key string, msgID MessageID, rating int) error
	// Messages returns a page of the session's messages (oldest first) and
	// the total count.
	Messages(ctx context.Context, userID UserID, key string, limit, offset int) ([]Message, int, error)
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	Completed *bool
	DueBefore *time.Time
	Limit     int
	Offset    int
}

type TaskStore interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, userID UserID, id TaskID) (*Task, error)
	// FindByTitle returns the user's task with an exact title match.
	FindByTitle(ctx context.Context, userID UserID, title string) (*Task, error)
	List(ctx context.Context, userID UserID, filter TaskFilter) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, userID UserID, id TaskID) error
	// DueSoon returns incomplete tasks across all users due before the cutoff.
	DueSoon(ctx context.Context, cutoff time.Time) ([]*Task, error)
}

type MoodStore interface {
	Create(ctx context.Context, log *MoodLog) error
	// ListSince returns the user's mood logs created at or after since,
	// newest first.
	ListSince(ctx context.Context, userID UserID, since time.Time) ([]*MoodLog, error)
}

type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetPassword(ctx context.Context, id UserID, passwordHash string) error
	// SetResetToken stores a single-use password reset token with expiry.
	SetResetToken(ctx context.Context, id UserID, token string, expiresAt time.Time) error
	// ConsumeResetToken resolves a token to its user and invalidates it, or
	// returns ErrResetTokenInvalid.
	ConsumeResetToken(ctx context.Context, token string) (*User, error)
}
