package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dostify/dostify/internal/types"
)

type fakeTool struct {
	name    string
	execute func(ctx context.Context, tctx ToolContext, args json.RawMessage) (*types.ToolResult, error)
}

func (t *fakeTool) Name() string                { return t.name }
func (t *fakeTool) Description() string         { return "fake tool for tests" }
func (t *fakeTool) Parameters() json.RawMessage { return json.RawMessage(`{"type": "object"}`) }
func (t *fakeTool) Execute(ctx context.Context, tctx ToolContext, args json.RawMessage) (*types.ToolResult, error) {
	return t.execute(ctx, tctx, args)
}

func TestRegistryExecute(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{
		name: "echo",
		execute: func(_ context.Context, _ ToolContext, args json.RawMessage) (*types.ToolResult, error) {
			var params struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, err
			}
			return &types.ToolResult{Success: true, Message: params.Text}, nil
		},
	})

	res := reg.Execute(context.Background(), ToolContext{}, types.ToolCall{
		ID: "call_1", Name: "echo", Arguments: `{"text": "hello"}`,
	})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Message != "hello" {
		t.Errorf("message = %q", res.Message)
	}
	if res.CallID != "call_1" || res.Tool != "echo" {
		t.Errorf("result not tagged with call: %+v", res)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry()

	res := reg.Execute(context.Background(), ToolContext{}, types.ToolCall{ID: "c", Name: "nope"})
	if res.Success {
		t.Fatal("unknown tool should fail")
	}
	if !strings.Contains(res.Error, "nope") {
		t.Errorf("error should name the tool: %q", res.Error)
	}
	if res.CallID != "c" {
		t.Errorf("failure result must still carry the call id, got %q", res.CallID)
	}
}

func TestRegistryExecuteMalformedArguments(t *testing.T) {
	called := false
	reg := NewRegistry()
	reg.Register(&fakeTool{
		name: "noop",
		execute: func(_ context.Context, _ ToolContext, _ json.RawMessage) (*types.ToolResult, error) {
			called = true
			return &types.ToolResult{Success: true}, nil
		},
	})

	res := reg.Execute(context.Background(), ToolContext{}, types.ToolCall{
		ID: "c", Name: "noop", Arguments: `{"broken`,
	})
	if res.Success {
		t.Fatal("malformed arguments should produce a failure result")
	}
	if called {
		t.Error("tool must not run on malformed arguments")
	}
}

func TestRegistryExecuteEmptyArguments(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{
		name: "noop",
		execute: func(_ context.Context, _ ToolContext, args json.RawMessage) (*types.ToolResult, error) {
			if string(args) != "{}" {
				t.Errorf("args = %q, want empty object", args)
			}
			return &types.ToolResult{Success: true}, nil
		},
	})

	res := reg.Execute(context.Background(), ToolContext{}, types.ToolCall{ID: "c", Name: "noop"})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
}

func TestRegistryExecuteHandlerError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{
		name: "boom",
		execute: func(_ context.Context, _ ToolContext, _ json.RawMessage) (*types.ToolResult, error) {
			return nil, errors.New("store unavailable")
		},
	})

	res := reg.Execute(context.Background(), ToolContext{}, types.ToolCall{ID: "c", Name: "boom", Arguments: "{}"})
	if res.Success {
		t.Fatal("handler error should produce a failure result")
	}
	if !strings.Contains(res.Error, "store unavailable") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "c"})
	reg.Register(&fakeTool{name: "a"})
	reg.Register(&fakeTool{name: "b"})

	defs := reg.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if defs[i].Function.Name != want {
			t.Errorf("definition %d = %q, want %q", i, defs[i].Function.Name, want)
		}
	}
	for _, def := range defs {
		if def.Type != "function" {
			t.Errorf("definition type = %q", def.Type)
		}
		if def.Function.Name == "" || def.Function.Parameters == nil {
			t.Errorf("incomplete definition %+v", def)
		}
	}
}

func TestRegistryDefinitionsStableOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid", "beta"} {
		reg.Register(&fakeTool{name: name})
	}

	first := reg.Definitions()
	for range 20 {
		defs := reg.Definitions()
		for i := range defs {
			if defs[i].Function.Name != first[i].Function.Name {
				t.Fatalf("definition order changed: %q at %d, want %q",
					defs[i].Function.Name, i, first[i].Function.Name)
			}
		}
	}
}
