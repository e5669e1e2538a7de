package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/types"
)

// GetSessionSummary reports metadata about the current session. The session
// is already loaded by the orchestrator; no store lookup happens here.
type GetSessionSummary struct{}

func NewGetSessionSummary() *GetSessionSummary { return &GetSessionSummary{} }

func (t *GetSessionSummary) Name() string { return "get_session_summary" }
func (t *GetSessionSummary) Description() string {
	return "Get title, message counts, and timestamps for the current conversation"
}
func (t *GetSessionSummary) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *GetSessionSummary) Execute(_ context.Context, tctx chat.ToolContext, _ json.RawMessage) (*types.ToolResult, error) {
	sess := tctx.Session
	if sess == nil {
		return &types.ToolResult{Success: false, Error: "no active session"}, nil
	}

	counts := map[string]int{}
	for _, msg := range sess.Messages {
		counts[string(msg.Role)]++
	}

	title := sess.Title
	if title == "" {
		title = "(untitled)"
	}

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Session %q has %d messages.", title, len(sess.Messages)),
		Data: map[string]any{
			"title":              sess.Title,
			"total_messages":     len(sess.Messages),
			"user_messages":      counts[string(types.RoleUser)],
			"assistant_messages": counts[string(types.RoleAssistant)],
			"tool_messages":      counts[string(types.RoleTool)],
			"created_at":         sess.CreatedAt.Format(time.RFC3339),
			"updated_at":         sess.UpdatedAt.Format(time.RFC3339),
		},
	}, nil
}
