package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/types"
)

// GiveFeedback sets a 1-5 rating on an assistant message, addressed by a
// 0-based index counted from the most recent message in the session.
type GiveFeedback struct {
	sessions types.SessionStore
}

func NewGiveFeedback(sessions types.SessionStore) *GiveFeedback {
	return &GiveFeedback{sessions: sessions}
}

func (t *GiveFeedback) Name() string { return "give_feedback" }
func (t *GiveFeedback) Description() string {
	return "Rate an assistant message 1-5; messageIndex 0 is the most recent message"
}
func (t *GiveFeedback) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"messageIndex": {"type": "integer", "description": "0-based index from the most recent message"},
			"rating": {"type": "integer", "description": "Rating from 1 to 5"}
		},
		"required": ["messageIndex", "rating"]
	}`)
}

func (t *GiveFeedback) Execute(ctx context.Context, tctx chat.ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		MessageIndex any `json:"messageIndex"`
		Rating       any `json:"rating"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	index, err := asInt(params.MessageIndex)
	if err != nil {
		return &types.ToolResult{Success: false, Error: fmt.Sprintf("messageIndex must be an integer: %v", err)}, nil
	}
	rating, err := asInt(params.Rating)
	if err != nil {
		return &types.ToolResult{Success: false, Error: fmt.Sprintf("rating must be an integer: %v", err)}, nil
	}
	if rating < 1 || rating > 5 {
		return &types.ToolResult{Success: false, Error: fmt.Sprintf("rating must be between 1 and 5, got %d", rating)}, nil
	}

	sess := tctx.Session
	if sess == nil {
		return &types.ToolResult{Success: false, Error: "no active session"}, nil
	}

	// End-relative resolution: index 0 is the most recent stored message.
	resolved := len(sess.Messages) - 1 - index
	if index < 0 || resolved < 0 || resolved >= len(sess.Messages) {
		return &types.ToolResult{Success: false, Error: fmt.Sprintf("message index %d out of range", index)}, nil
	}

	target := sess.Messages[resolved]
	if target.Role != types.RoleAssistant {
		return &types.ToolResult{Success: false, Error: "feedback can only be given on assistant messages"}, nil
	}

	if err := t.sessions.SetFeedback(ctx, tctx.UserID, sess.Key, target.ID, rating); err != nil {
		return nil, fmt.Errorf("set feedback: %w", err)
	}
	sess.Messages[resolved].Feedback = rating

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Feedback %d recorded.", rating),
		Data:    map[string]any{"message_id": string(target.ID)},
	}, nil
}
