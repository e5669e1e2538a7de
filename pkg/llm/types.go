package llm

import (
	"encoding/json"
	"fmt"
)

// Message represents a chat message in a conversation.
// Exactly one of Content or Parts carries the body; Parts is used for
// multi-part user content (text plus image reference).
type Message struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Name       string        `json:"name,omitempty"`
}

// ContentPart is one element of a multi-part message body.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference in the shape the wire format expects.
type ImageURL struct {
	URL string `json:"url"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and arguments for a tool call.
// Arguments is the raw string produced by the model; callers parse it at
// their own boundary.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a tool that can be provided to the model.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes a callable function including its parameters schema.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FinishToolCalls is the finish reason signalling that the model stopped to
// request tool execution.
const FinishToolCalls = "tool_calls"

// Response represents a complete response from an LLM provider.
type Response struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        Usage      `json:"usage"`
}

// WantsTools reports whether the response asks the caller to execute tools.
func (r *Response) WantsTools() bool {
	return r.FinishReason == FinishToolCalls || len(r.ToolCalls) > 0
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// UpstreamError is returned when the upstream completion service fails:
// transport error, timeout, non-success status, or malformed body.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream completion failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream completion failed (status %d): %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
