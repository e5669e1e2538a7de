package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/store/memory"
	"github.com/dostify/dostify/internal/types"
)

func seedSession(t *testing.T, sessions *memory.SessionStore, userID types.UserID, key string, msgs []types.Message) *types.Session {
	t.Helper()
	ctx := context.Background()
	if _, err := sessions.GetOrCreate(ctx, userID, key); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := sessions.AppendMessages(ctx, userID, key, msgs); err != nil {
		t.Fatalf("AppendMessages failed: %v", err)
	}
	sess, err := sessions.Get(ctx, userID, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return sess
}

func TestGetSessionSummary(t *testing.T) {
	sessions := memory.NewSessionStore()
	userID := types.NewUserID()
	sess := seedSession(t, sessions, userID, "default", []types.Message{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi there"},
		{Role: types.RoleUser, Content: "log my mood"},
		{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: "c1", Name: "log_mood"}}},
		{Role: types.RoleTool, ToolCallID: "c1", ToolName: "log_mood"},
		{Role: types.RoleAssistant, Content: "done"},
	})

	tool := NewGetSessionSummary()
	result, err := tool.Execute(context.Background(), chat.ToolContext{UserID: userID, Session: sess}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["total_messages"] != 6 {
		t.Errorf("total_messages = %v, want 6", result.Data["total_messages"])
	}
	if result.Data["user_messages"] != 2 {
		t.Errorf("user_messages = %v, want 2", result.Data["user_messages"])
	}
	if result.Data["assistant_messages"] != 3 {
		t.Errorf("assistant_messages = %v, want 3", result.Data["assistant_messages"])
	}
	if result.Data["tool_messages"] != 1 {
		t.Errorf("tool_messages = %v, want 1", result.Data["tool_messages"])
	}
}

func TestGetSessionSummaryNoSession(t *testing.T) {
	tool := NewGetSessionSummary()
	result, err := tool.Execute(context.Background(), chat.ToolContext{UserID: types.NewUserID()}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		t.Error("expected failure with no session")
	}
}

func TestGiveFeedback(t *testing.T) {
	sessions := memory.NewSessionStore()
	userID := types.NewUserID()
	sess := seedSession(t, sessions, userID, "default", []types.Message{
		{Role: types.RoleUser, Content: "how do I relax?"},
		{Role: types.RoleAssistant, Content: "try a short walk"},
		{Role: types.RoleUser, Content: "thanks!"},
	})

	tool := NewGiveFeedback(sessions)
	tctx := chat.ToolContext{UserID: userID, Session: sess}

	// Index 1 counts back from the most recent message to the assistant reply.
	result, err := tool.Execute(context.Background(), tctx, json.RawMessage(`{"messageIndex": 1, "rating": 5}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	stored, err := sessions.Get(context.Background(), userID, "default")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Messages[1].Feedback != 5 {
		t.Errorf("stored feedback = %d, want 5", stored.Messages[1].Feedback)
	}
	if sess.Messages[1].Feedback != 5 {
		t.Errorf("in-memory session feedback = %d, want 5", sess.Messages[1].Feedback)
	}
}

func TestGiveFeedbackSurvivesAppends(t *testing.T) {
	sessions := memory.NewSessionStore()
	userID := types.NewUserID()
	sess := seedSession(t, sessions, userID, "default", []types.Message{
		{Role: types.RoleUser, Content: "first"},
		{Role: types.RoleAssistant, Content: "reply"},
	})
	target := sess.Messages[1].ID

	tool := NewGiveFeedback(sessions)
	result, err := tool.Execute(context.Background(), chat.ToolContext{UserID: userID, Session: sess},
		json.RawMessage(`{"messageIndex": 0, "rating": 4}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	// New messages after the rating must not shift which message holds it.
	if err := sessions.AppendMessages(context.Background(), userID, "default", []types.Message{
		{Role: types.RoleUser, Content: "second"},
		{Role: types.RoleAssistant, Content: "another reply"},
	}); err != nil {
		t.Fatalf("AppendMessages failed: %v", err)
	}

	stored, err := sessions.Get(context.Background(), userID, "default")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for _, msg := range stored.Messages {
		if msg.ID == target && msg.Feedback != 4 {
			t.Errorf("rated message feedback = %d, want 4", msg.Feedback)
		}
		if msg.ID != target && msg.Feedback != 0 {
			t.Errorf("message %s unexpectedly rated %d", msg.ID, msg.Feedback)
		}
	}
}

func TestGiveFeedbackRejections(t *testing.T) {
	sessions := memory.NewSessionStore()
	userID := types.NewUserID()
	sess := seedSession(t, sessions, userID, "default", []types.Message{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi"},
	})

	tool := NewGiveFeedback(sessions)
	tctx := chat.ToolContext{UserID: userID, Session: sess}

	tests := []struct {
		name string
		args string
	}{
		{"rating too low", `{"messageIndex": 0, "rating": 0}`},
		{"rating too high", `{"messageIndex": 0, "rating": 6}`},
		{"index out of range", `{"messageIndex": 99, "rating": 3}`},
		{"negative index", `{"messageIndex": -1, "rating": 3}`},
		{"target is a user message", `{"messageIndex": 1, "rating": 3}`},
		{"missing rating", `{"messageIndex": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(context.Background(), tctx, json.RawMessage(tt.args))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if result.Success {
				t.Error("expected failure")
			}
		})
	}
}
