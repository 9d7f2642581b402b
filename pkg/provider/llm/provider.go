// Package llm defines the Provider interface for the completion capability
// used by the text responder.
//
// An LLM provider wraps a remote model API (e.g., Cloudflare Workers AI,
// OpenAI) and exposes a single request/response completion method. The
// interface is intentionally narrow: the responder needs one prompt in and
// one text out, nothing more.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
package llm

import "context"

// Message represents a single message in a completion conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a
// response. At minimum Prompt or Messages must be non-empty.
type CompletionRequest struct {
	// Prompt is a single-shot instruction string. Providers that only
	// accept chat messages wrap it as one user message.
	Prompt string

	// Messages is an optional ordered conversation history. When set it
	// takes precedence over Prompt.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	// Content is the full text of the reply.
	Content string

	// Model identifies which model produced the reply, when reported.
	Model string
}

// Provider is the abstraction over any completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled before the
	// completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
