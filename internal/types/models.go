// internal/types/models.go
package types

import (
	"time"
)

// Role identifies the sender of a message within a session.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentType tags user messages as plain text or image-bearing.
const (
	ContentText  = "text"
	ContentImage = "image"
)

// ToolCall is a model-requested invocation of a named local tool.
// Arguments is the raw payload exactly as the model produced it; it is
// parsed only at the tool executor boundary.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the structured outcome of executing one tool call.
type ToolResult struct {
	CallID  string         `json:"call_id,omitempty"`
	Tool    string         `json:"tool,omitempty"`
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Warning string         `json:"warning,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Message is one turn in a session. Which fields are populated depends on
// Role: user messages carry ContentType/ImageURL, assistant messages may
// carry ToolCalls and Feedback, tool messages carry ToolCallID/ToolName and
// the Result they answer with.
type Message struct {
	ID          MessageID   `json:"id"`
	Role        Role        `json:"role"`
	Content     string      `json:"content,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
	ToolCalls   []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID  string      `json:"tool_call_id,omitempty"`
	ToolName    string      `json:"tool_name,omitempty"`
	Result      *ToolResult `json:"result,omitempty"`
	Feedback    int         `json:"feedback,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Session is a persisted conversation thread. Key is the caller-supplied
// session identifier, unique per user; ID is the storage identity.
type Session struct {
	ID           SessionID `json:"id"`
	UserID       UserID    `json:"user_id"`
	Key          string    `json:"session_key"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Messages     []Message `json:"messages,omitempty"`
	MessageCount int       `json:"message_count,omitempty"`
}

// Task is a planner entry owned by one user.
type Task struct {
	ID          TaskID     `json:"id"`
	UserID      UserID     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MoodLog is an append-only mood entry. Mood is 1-10; the range is enforced
// at the tool and endpoint boundary, not by storage.
type MoodLog struct {
	ID        MoodLogID `json:"id"`
	UserID    UserID    `json:"user_id"`
	Mood      int       `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account. PasswordHash is a bcrypt hash; TelegramChatID is set
// when the user linked a reminder chat.
type User struct {
	ID             UserID    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	PasswordHash   string    `json:"-"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
