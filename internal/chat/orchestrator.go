package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dostify/dostify/internal/types"
	"github.com/dostify/dostify/pkg/llm"
)

// Orchestrator owns the chat turn lifecycle: load session, build history,
// call the model, execute requested tools in order, report results back in a
// follow-up call, and persist the full trace.
type Orchestrator struct {
	provider     llm.Provider
	sessions     types.SessionStore
	registry     *Registry
	history      *HistoryBuilder
	systemPrompt string
}

// NewOrchestrator creates an Orchestrator with the given dependencies.
func NewOrchestrator(
	provider llm.Provider,
	sessions types.SessionStore,
	registry *Registry,
	history *HistoryBuilder,
	systemPrompt string,
) *Orchestrator {
	return &Orchestrator{
		provider:     provider,
		sessions:     sessions,
		registry:     registry,
		history:      history,
		systemPrompt: systemPrompt,
	}
}

// TurnRequest is one inbound user message addressed to a session.
type TurnRequest struct {
	SessionKey  string
	Message     string
	ContentType string
	ImageURL    string
}

// TurnResult is what a completed (or partially completed) turn produced.
// Partial results accompany an error when the follow-up model call failed
// after tools already ran.
type TurnResult struct {
	SessionKey  string
	Reply       string
	ToolResults []types.ToolResult
	Messages    []types.Message
	Timestamp   time.Time
}

// Turn executes one full request/response cycle for the given user.
//
// The inbound user message is persisted before the first model call, so it
// survives upstream failures. Tool calls execute sequentially in the order
// the model listed them, without short-circuiting on individual failures,
// and every executed call is answered by exactly one stored tool message
// carrying its call identifier.
func (o *Orchestrator) Turn(ctx context.Context, userID types.UserID, req TurnRequest) (*TurnResult, error) {
	sess, err := o.sessions.GetOrCreate(ctx, userID, req.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = types.ContentText
	}
	userMsg := types.Message{
		ID:          types.NewMessageID(),
		Role:        types.RoleUser,
		Content:     req.Message,
		ContentType: contentType,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now(),
	}

	history := o.history.Build(o.systemPrompt, sess.Messages, userMsg)

	// Durable before the first model call: an upstream failure must not
	// lose the user's message.
	if err := o.append(ctx, sess, userMsg); err != nil {
		return nil, err
	}

	resp, err := o.provider.Complete(ctx, history, o.registry.Definitions())
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	result := &TurnResult{
		SessionKey: req.SessionKey,
		Timestamp:  time.Now(),
	}

	if !resp.WantsTools() {
		assistantMsg := newAssistantMessage(resp)
		if err := o.append(ctx, sess, assistantMsg); err != nil {
			return nil, err
		}
		result.Reply = resp.Content
		result.Messages = append(result.Messages, userMsg, assistantMsg)
		return result, nil
	}

	assistantMsg := newAssistantMessage(resp)
	if err := o.append(ctx, sess, assistantMsg); err != nil {
		return nil, err
	}
	history = append(history, mustMap(o.history, assistantMsg))

	toolMsgs := make([]types.Message, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		call := types.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
		res := o.registry.Execute(ctx, ToolContext{UserID: userID, Session: sess}, call)
		if !res.Success {
			slog.Warn("tool call failed", "tool", call.Name, "call_id", call.ID, "error", res.Error)
		}
		result.ToolResults = append(result.ToolResults, *res)
		toolMsgs = append(toolMsgs, types.Message{
			ID:         types.NewMessageID(),
			Role:       types.RoleTool,
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Result:     res,
			CreatedAt:  time.Now(),
		})
	}

	if err := o.append(ctx, sess, toolMsgs...); err != nil {
		return nil, err
	}
	for _, msg := range toolMsgs {
		history = append(history, mustMap(o.history, msg))
	}

	// The follow-up call carries no tool definitions, preventing unbounded
	// recursive tool invocation within a single turn.
	followup, err := o.provider.Complete(ctx, history, nil)
	if err != nil {
		// Tool side effects are already committed; report what completed.
		result.Messages = append(result.Messages, userMsg, assistantMsg)
		result.Messages = append(result.Messages, toolMsgs...)
		return result, fmt.Errorf("follow-up completion: %w", err)
	}

	// An empty final message after a tool round is stored as-is and
	// reported as an empty reply, never treated as a failure.
	finalMsg := newAssistantMessage(followup)
	if err := o.append(ctx, sess, finalMsg); err != nil {
		return nil, err
	}

	result.Reply = followup.Content
	result.Messages = append(result.Messages, userMsg, assistantMsg)
	result.Messages = append(result.Messages, toolMsgs...)
	result.Messages = append(result.Messages, finalMsg)
	return result, nil
}

// append persists messages and mirrors them onto the in-memory session so
// tools executing later in the same turn observe them.
func (o *Orchestrator) append(ctx context.Context, sess *types.Session, msgs ...types.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := o.sessions.AppendMessages(ctx, sess.UserID, sess.Key, msgs); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	sess.Messages = append(sess.Messages, msgs...)
	sess.UpdatedAt = time.Now()
	return nil
}

// newAssistantMessage converts a model response into its storable shape.
// When the model requested tool use the message carries the tool call list
// verbatim and typically no free text.
func newAssistantMessage(resp *llm.Response) types.Message {
	msg := types.Message{
		ID:        types.NewMessageID(),
		Role:      types.RoleAssistant,
		Content:   resp.Content,
		CreatedAt: time.Now(),
	}
	for _, tc := range resp.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}

func mustMap(b *HistoryBuilder, msg types.Message) llm.Message {
	mapped, _ := b.Map(msg)
	return mapped
}
