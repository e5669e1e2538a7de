// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type UserID string
type SessionID string
type MessageID string
type TaskID string
type MoodLogID string

func NewUserID() UserID {
	return UserID(uuid.New().String())
}

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

func NewMoodLogID() MoodLogID {
	return MoodLogID(uuid.New().String())
}
