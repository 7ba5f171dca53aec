package llmclient

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/config"
)

// setupTestLogger creates a logger backed by an observer.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// fastBackOff keeps retry tests quick.
func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func getValidLLMConfig(provider config.LLMProvider) config.LLMConfig {
	return config.LLMConfig{
		Provider:        provider,
		Model:           "test-model",
		APIKey:          "test-api-key",
		APITimeout:      5 * time.Second,
		Temperature:     0.2,
		MaxTokens:       256,
		MaxRetryElapsed: time.Second,
		AppTitle:        "odin",
	}
}

func createTestRequest() schemas.CompletionRequest {
	return schemas.CompletionRequest{
		SystemPrompt: "You operate a computer.",
		History: []schemas.Message{
			{Role: schemas.RoleUser, Content: "Task: open mail"},
			{Role: schemas.RoleAssistant, Content: `{"action": "wait", "params": {"seconds": 1}}`},
		},
		Prompt: "Step 2 of 10. What is the next action?",
		Image: &schemas.Screenshot{
			ID:       "shot",
			Data:     []byte("\x89PNG fake image"),
			MIMEType: "image/png",
			Width:    100,
			Height:   100,
		},
	}
}
