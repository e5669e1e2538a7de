package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/store/memory"
	"github.com/dostify/dostify/internal/types"
)

func testToolContext() chat.ToolContext {
	return chat.ToolContext{
		UserID:  types.NewUserID(),
		Session: &types.Session{ID: types.NewSessionID(), Key: "default"},
	}
}

func TestLogMood(t *testing.T) {
	moods := memory.NewMoodStore()
	tool := NewLogMood(moods)
	tctx := testToolContext()

	result, err := tool.Execute(context.Background(), tctx, json.RawMessage(`{"mood": 7, "note": "good day"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Data["mood_log_id"] == "" {
		t.Error("expected mood_log_id in result data")
	}

	logs, err := moods.ListSince(context.Background(), tctx.UserID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 mood log, got %d", len(logs))
	}
	if logs[0].Mood != 7 || logs[0].Note != "good day" {
		t.Errorf("unexpected log %+v", logs[0])
	}
}

func TestLogMoodRange(t *testing.T) {
	tests := []struct {
		name string
		args string
		ok   bool
	}{
		{"lower bound", `{"mood": 1}`, true},
		{"upper bound", `{"mood": 10}`, true},
		{"too low", `{"mood": 0}`, false},
		{"too high", `{"mood": 11}`, false},
		{"missing", `{}`, false},
		{"fractional", `{"mood": 5.5}`, false},
		{"quoted number", `{"mood": "6"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := NewLogMood(memory.NewMoodStore())
			result, err := tool.Execute(context.Background(), testToolContext(), json.RawMessage(tt.args))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if result.Success != tt.ok {
				t.Errorf("success = %v, want %v (error %q)", result.Success, tt.ok, result.Error)
			}
		})
	}
}

func TestGetMoodHistoryEmpty(t *testing.T) {
	tool := NewGetMoodHistory(memory.NewMoodStore())

	result, err := tool.Execute(context.Background(), testToolContext(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("empty history should still succeed, got error %q", result.Error)
	}
	if !strings.Contains(result.Message, "No mood logs") {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestGetMoodHistoryWindow(t *testing.T) {
	moods := memory.NewMoodStore()
	tctx := testToolContext()

	old := &types.MoodLog{
		ID:        types.NewMoodLogID(),
		UserID:    tctx.UserID,
		Mood:      3,
		CreatedAt: time.Now().AddDate(0, 0, -10),
	}
	if err := moods.Create(context.Background(), old); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	recent := &types.MoodLog{ID: types.NewMoodLogID(), UserID: tctx.UserID, Mood: 8}
	if err := moods.Create(context.Background(), recent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tool := NewGetMoodHistory(moods)
	result, err := tool.Execute(context.Background(), tctx, json.RawMessage(`{"days": 7}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	logs, ok := result.Data["logs"].([]map[string]any)
	if !ok {
		t.Fatalf("expected logs in result data, got %T", result.Data["logs"])
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 log inside the window, got %d", len(logs))
	}
}

func TestGetMoodHistoryInvalidDays(t *testing.T) {
	tool := NewGetMoodHistory(memory.NewMoodStore())

	for _, args := range []string{`{"days": 0}`, `{"days": -5}`, `{"days": "soon"}`} {
		result, err := tool.Execute(context.Background(), testToolContext(), json.RawMessage(args))
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result.Success {
			t.Errorf("args %s should fail", args)
		}
	}
}
