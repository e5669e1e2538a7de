// Package pollinations implements llm.Provider against the Pollinations
// text generation API, which speaks the OpenAI chat completions protocol.
package pollinations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dostify/dostify/pkg/llm"
)

// DefaultBaseURL is the Pollinations OpenAI-compatible endpoint root.
const DefaultBaseURL = "https://text.pollinations.ai/openai"

// requestTimeout bounds a single completion round-trip.
const requestTimeout = 2 * time.Minute

// Client implements the llm.Provider interface for the Pollinations API.
type Client struct {
	config     *llm.Config
	httpClient *http.Client
	retry      *RetryPolicy
	inflight   *semaphore.Weighted
}

// New creates a Pollinations client with the given configuration.
func New(config *llm.Config) *Client {
	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		retry: DefaultRetryPolicy(),
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.MaxInFlight > 0 {
		c.inflight = semaphore.NewWeighted(config.MaxInFlight)
	}
	return c
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []requestMessage `json:"messages"`
	Tools       []llm.Tool       `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float32         `json:"temperature,omitempty"`
	Referrer    string           `json:"referrer,omitempty"`
}

// requestMessage is the wire message format for requests. Content is either
// a plain string or an array of content parts.
type requestMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// chatResponse is the chat completions response body.
type chatResponse struct {
	Choices []choice      `json:"choices"`
	Usage   responseUsage `json:"usage"`
}

// choice represents a single completion choice.
type choice struct {
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// responseMessage is the wire message format in responses.
type responseMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`
}

// responseUsage is the token usage format.
type responseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Complete sends a chat completion request and returns the full response.
// Transient failures (transport errors, 429, 5xx) are retried inside the
// client; callers see only the final outcome.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	if c.inflight != nil {
		if err := c.inflight.Acquire(ctx, 1); err != nil {
			return nil, &llm.UpstreamError{Err: err}
		}
		defer c.inflight.Release(1)
	}

	body, err := json.Marshal(c.buildRequest(messages, tools))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var resp *llm.Response
	err = c.retry.Execute(ctx, func() error {
		var attemptErr error
		resp, attemptErr = c.complete(ctx, body)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) buildRequest(messages []llm.Message, tools []llm.Tool) *chatRequest {
	reqMessages := make([]requestMessage, len(messages))
	for i, msg := range messages {
		rm := requestMessage{
			Role:       msg.Role,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		if len(msg.Parts) > 0 {
			rm.Content = msg.Parts
		} else {
			rm.Content = msg.Content
		}
		if len(msg.ToolCalls) > 0 {
			rm.ToolCalls = msg.ToolCalls
		}
		reqMessages[i] = rm
	}

	reqBody := &chatRequest{
		Model:    c.config.Model,
		Messages: reqMessages,
		Referrer: c.config.Referrer,
	}

	if len(tools) > 0 {
		reqBody.Tools = tools
		reqBody.ToolChoice = "auto"
	}

	if c.config.MaxTokens > 0 {
		reqBody.MaxTokens = c.config.MaxTokens
	}

	if c.config.Temperature != 0 {
		temp := c.config.Temperature
		reqBody.Temperature = &temp
	}

	return reqBody
}

// complete performs one attempt against /chat/completions.
func (c *Client) complete(ctx context.Context, body []byte) (*llm.Response, error) {
	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.UpstreamError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &llm.UpstreamError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, &llm.UpstreamError{Err: fmt.Errorf("parsing response: %w", err)}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &llm.UpstreamError{Err: fmt.Errorf("no choices in response")}
	}

	choice := chatResp.Choices[0]
	return &llm.Response{
		Content:      choice.Message.Content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
		Usage: llm.Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:  chatResp.Usage.TotalTokens,
		},
	}, nil
}
