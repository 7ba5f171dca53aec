package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/odin/internal/config"
)

func TestNewClient_Providers(t *testing.T) {
	logger, _ := setupTestLogger(t)
	ctx := context.Background()

	client, err := NewClient(ctx, getValidLLMConfig(config.ProviderOpenRouter), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.IsType(t, &OpenRouterClient{}, client)

	cfg := getValidLLMConfig(config.ProviderGemini)
	cfg.Endpoint = "http://127.0.0.1:1"
	client, err = NewClient(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, client)
}

func TestNewClient_FallbackRouter(t *testing.T) {
	logger, _ := setupTestLogger(t)
	cfg := getValidLLMConfig(config.ProviderOpenRouter)
	cfg.FallbackModel = "backup-model"

	client, err := NewClient(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	router, ok := client.(*FallbackRouter)
	require.True(t, ok, "a fallback model yields a router")
	assert.Equal(t, "test-model", router.primary.(*OpenRouterClient).config.Model)
	assert.Equal(t, "backup-model", router.fallback.(*OpenRouterClient).config.Model)
}

func TestNewClient_Failures(t *testing.T) {
	logger, _ := setupTestLogger(t)
	ctx := context.Background()

	cfg := getValidLLMConfig("anthropic-direct")
	_, err := NewClient(ctx, cfg, logger)
	assert.ErrorContains(t, err, "unsupported LLM provider")

	cfg = getValidLLMConfig(config.ProviderOpenRouter)
	cfg.APIKey = ""
	_, err = NewClient(ctx, cfg, logger)
	assert.ErrorContains(t, err, "API key is required")
}
