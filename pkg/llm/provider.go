package llm

import "context"

// Provider defines the interface for interacting with LLM backends.
// Implementations handle protocol-specific details such as request formatting,
// authentication, and response parsing.
type Provider interface {
	// Complete sends a chat completion request and returns the full response.
	// An empty tools slice omits tool definitions from the request entirely.
	Complete(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Referrer    string
	MaxTokens   int
	Temperature float32
	// MaxInFlight caps concurrent upstream requests; zero means no cap.
	MaxInFlight int64
}
