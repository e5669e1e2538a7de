package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/types"
)

const defaultMoodHistoryDays = 30

// LogMood inserts a mood log entry for the current user.
type LogMood struct {
	moods types.MoodStore
}

func NewLogMood(moods types.MoodStore) *LogMood { return &LogMood{moods: moods} }

func (t *LogMood) Name() string { return "log_mood" }
func (t *LogMood) Description() string {
	return "Log the user's current mood on a 1-10 scale with an optional note"
}
func (t *LogMood) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"mood": {"type": "integer", "description": "Mood rating from 1 (worst) to 10 (best)"},
			"note": {"type": "string", "description": "Optional note about how the user feels"}
		},
		"required": ["mood"]
	}`)
}

func (t *LogMood) Execute(ctx context.Context, tctx chat.ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Mood any    `json:"mood"`
		Note string `json:"note"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	mood, err := asInt(params.Mood)
	if err != nil {
		return &types.ToolResult{Success: false, Error: fmt.Sprintf("mood must be an integer between 1 and 10: %v", err)}, nil
	}
	if mood < 1 || mood > 10 {
		return &types.ToolResult{Success: false, Error: fmt.Sprintf("mood must be between 1 and 10, got %d", mood)}, nil
	}

	log := &types.MoodLog{
		ID:        types.NewMoodLogID(),
		UserID:    tctx.UserID,
		Mood:      mood,
		Note:      params.Note,
		CreatedAt: time.Now(),
	}
	if err := t.moods.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("save mood log: %w", err)
	}

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Mood %d logged.", mood),
		Data:    map[string]any{"mood_log_id": string(log.ID)},
	}, nil
}

// GetMoodHistory reads the user's mood logs over a trailing window of days.
type GetMoodHistory struct {
	moods types.MoodStore
}

func NewGetMoodHistory(moods types.MoodStore) *GetMoodHistory {
	return &GetMoodHistory{moods: moods}
}

func (t *GetMoodHistory) Name() string { return "get_mood_history" }
func (t *GetMoodHistory) Description() string {
	return "Get the user's mood logs from the last N days (default 30)"
}
func (t *GetMoodHistory) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"days": {"type": "integer", "description": "How many days back to look (default 30)"}
		}
	}`)
}

func (t *GetMoodHistory) Execute(ctx context.Context, tctx chat.ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Days any `json:"days"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	days := defaultMoodHistoryDays
	if params.Days != nil {
		n, err := asInt(params.Days)
		if err != nil {
			return &types.ToolResult{Success: false, Error: fmt.Sprintf("days must be a positive integer: %v", err)}, nil
		}
		if n <= 0 {
			return &types.ToolResult{Success: false, Error: fmt.Sprintf("days must be a positive integer, got %d", n)}, nil
		}
		days = n
	}

	since := time.Now().AddDate(0, 0, -days)
	logs, err := t.moods.ListSince(ctx, tctx.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("list mood logs: %w", err)
	}

	if len(logs) == 0 {
		return &types.ToolResult{
			Success: true,
			Message: fmt.Sprintf("No mood logs in the last %d days.", days),
		}, nil
	}

	entries := make([]map[string]any, len(logs))
	sum := 0
	for i, log := range logs {
		sum += log.Mood
		entries[i] = map[string]any{
			"mood":       log.Mood,
			"note":       log.Note,
			"created_at": log.CreatedAt.Format(time.RFC3339),
		}
	}

	return &types.ToolResult{
		Success: true,
		Message: fmt.Sprintf("%d mood logs in the last %d days (average %.1f).", len(logs), days, float64(sum)/float64(len(logs))),
		Data:    map[string]any{"logs": entries},
	}, nil
}
