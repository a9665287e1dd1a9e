package driven

import "context"

// ChatCompleter sends a single chat-completion request to an
// OpenAI-compatible endpoint. It performs no retries: fallback across models
// is the caller's responsibility.
//
// Implementations classify failures with the domain upstream errors:
// domain.ErrUpstreamTimeout, domain.ErrModelUnavailable,
// domain.ErrUpstreamStatus and domain.ErrEmptyCompletion. Transport
// errors are returned wrapped as-is.
type ChatCompleter interface {
	// Complete returns the content of the first choice.
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is one chat-completion request.
type ChatRequest struct {
	// Model is the model identifier to call.
	Model string

	// Messages is the conversation so far.
	Messages []ChatMessage

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}
