package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"github.com/dostify/dostify/internal/types"
	"github.com/dostify/dostify/pkg/llm"
)

// DefaultWindow is the number of most-recent stored messages replayed to the
// model on each turn.
const DefaultWindow = 10

// HistoryBuilder converts a session's stored message sequence into the
// ordered list the model expects. A fixed message window bounds how far back
// history reaches; a token budget trims further when windowed messages are
// still too large.
type HistoryBuilder struct {
	window    int
	tokenizer *tiktoken.Tiktoken
	budget    int
}

// NewHistoryBuilder creates a history builder. model selects the tokenizer,
// window bounds the message count (DefaultWindow when <= 0), and budget is
// the input token ceiling (0 disables token trimming).
func NewHistoryBuilder(model string, window, budget int) (*HistoryBuilder, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &HistoryBuilder{window: window, tokenizer: enc, budget: budget}, nil
}

// Build maps the last window stored messages plus the new inbound user
// message into model messages, oldest first, with the inbound message last.
// An optional system prompt is prepended. Messages with unknown sender kinds
// are dropped with a warning, never aborting the mapping.
func (b *HistoryBuilder) Build(systemPrompt string, stored []types.Message, inbound types.Message) []llm.Message {
	recent := stored
	if len(recent) > b.window {
		recent = recent[len(recent)-b.window:]
	}

	var history []llm.Message
	for _, msg := range recent {
		mapped, ok := b.Map(msg)
		if !ok {
			continue
		}
		history = append(history, mapped)
	}

	if mapped, ok := b.Map(inbound); ok {
		history = append(history, mapped)
	}

	history = b.trimToBudget(systemPrompt, history)

	if systemPrompt != "" {
		history = append([]llm.Message{{Role: "system", Content: systemPrompt}}, history...)
	}
	return history
}

// Map converts one stored message into the model wire shape. The second
// return value is false when the sender kind is unknown.
func (b *HistoryBuilder) Map(msg types.Message) (llm.Message, bool) {
	switch msg.Role {
	case types.RoleUser:
		if msg.ContentType == types.ContentImage && msg.ImageURL != "" {
			return llm.Message{
				Role: "user",
				Parts: []llm.ContentPart{
					{Type: "text", Text: msg.Content},
					{Type: "image_url", ImageURL: &llm.ImageURL{URL: msg.ImageURL}},
				},
			}, true
		}
		return llm.Message{Role: "user", Content: msg.Content}, true

	case types.RoleAssistant:
		out := llm.Message{Role: "assistant", Content: msg.Content}
		for _, tc := range msg.ToolCalls {
			// The argument payload is passed through unparsed; it is opaque
			// to the model and parsed only by the tool executor.
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return out, true

	case types.RoleTool:
		content := msg.Content
		if msg.Result != nil {
			if data, err := json.Marshal(msg.Result); err == nil {
				content = string(data)
			}
		}
		return llm.Message{
			Role:       "tool",
			Content:    content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.ToolName,
		}, true

	default:
		slog.Warn("dropping message with unknown sender kind", "role", msg.Role, "message_id", msg.ID)
		return llm.Message{}, false
	}
}

// trimToBudget drops the oldest mapped messages until the token total fits,
// always keeping the final (inbound) message.
func (b *HistoryBuilder) trimToBudget(systemPrompt string, history []llm.Message) []llm.Message {
	if b.budget <= 0 || len(history) == 0 {
		return history
	}

	total := b.countTokens(systemPrompt)
	for i := range history {
		total += b.messageTokens(history[i])
	}
	for total > b.budget && len(history) > 1 {
		total -= b.messageTokens(history[0])
		history = history[1:]
	}
	return history
}

func (b *HistoryBuilder) messageTokens(msg llm.Message) int {
	n := b.countTokens(msg.Content)
	for _, part := range msg.Parts {
		n += b.countTokens(part.Text)
	}
	for _, tc := range msg.ToolCalls {
		n += b.countTokens(tc.Function.Arguments)
	}
	return n
}

func (b *HistoryBuilder) countTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(b.tokenizer.Encode(text, nil, nil))
}
