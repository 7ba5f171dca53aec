package schemas

import "context"

// -- Model Interface --

// LLMClient defines a standard interface for interacting with a vision-capable
// language model, abstracting the specifics of the underlying provider.
type LLMClient interface {
	// Complete sends the system prompt, the conversation history and the
	// current turn (text plus an optional screenshot) and returns the model's
	// raw reply. Provider failures (timeouts, auth, rate limits) are returned
	// as errors.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Close releases any resources held by the client.
	Close() error
}
