package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dostify/dostify/internal/types"
	"github.com/dostify/dostify/pkg/llm"
)

// ToolContext carries per-turn metadata into tool handlers.
type ToolContext struct {
	UserID  types.UserID
	Session *types.Session
}

// Tool defines the interface for an executable tool. Execute parses its own
// argument payload; returned errors are converted to failure results at the
// registry boundary and never escape a chat turn.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, tctx ToolContext, args json.RawMessage) (*types.ToolResult, error)
}

// Registry holds registered tools and provides lookup and dispatch.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns all registered tools, ordered by name.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Definitions converts registered tools to the model-facing format. The
// order is stable across requests so the model always sees the same schema.
func (r *Registry) Definitions() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.tools))
	for _, t := range r.All() {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.Function{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return out
}

// Execute runs a single tool call and always returns a result: unknown
// tools, malformed argument payloads, and handler errors all become
// {success:false} results rather than request-level failures.
func (r *Registry) Execute(ctx context.Context, tctx ToolContext, call types.ToolCall) *types.ToolResult {
	fail := func(format string, args ...any) *types.ToolResult {
		return &types.ToolResult{
			CallID:  call.ID,
			Tool:    call.Name,
			Success: false,
			Error:   fmt.Sprintf(format, args...),
		}
	}

	tool, ok := r.tools[call.Name]
	if !ok {
		return fail("unknown tool %q", call.Name)
	}

	raw := call.Arguments
	if raw == "" {
		raw = "{}"
	}

	// The argument payload must deserialize to an object before dispatch;
	// a malformed payload from the model is a data condition, not a crash.
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fail("invalid arguments for %s: %v", call.Name, err)
	}

	result, err := tool.Execute(ctx, tctx, json.RawMessage(raw))
	if err != nil {
		return fail("%v", err)
	}
	if result == nil {
		return fail("tool %s returned no result", call.Name)
	}
	result.CallID = call.ID
	result.Tool = call.Name
	return result
}
