package schemas

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest encapsulates a complete request to the model.
type CompletionRequest struct {
	SystemPrompt string            `json:"system_prompt"` // Instructions and action vocabulary.
	History      []Message         `json:"history"`       // Prior turns, oldest first.
	Prompt       string            `json:"prompt"`        // Text of the current turn.
	Image        *Screenshot       `json:"-"`             // Latest observation; may be nil.
	Options      GenerationOptions `json:"options"`
}

// GenerationOptions holds per-request overrides of the client defaults.
type GenerationOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}
