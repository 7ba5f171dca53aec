package llmclient

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/odin/internal/config"
)

// -- Test Setup Helpers --

func setupOpenRouterClient(t *testing.T, handler http.HandlerFunc) (*OpenRouterClient, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, logs := setupTestLogger(t)
	cfg := getValidLLMConfig(config.ProviderOpenRouter)
	cfg.Endpoint = server.URL + "/"
	cfg.Referer = "https://example.test"

	client, err := NewOpenRouterClient(cfg, logger)
	require.NoError(t, err)
	client.backoffFactory = fastBackOff
	t.Cleanup(func() { _ = client.Close() })
	return client, logs
}

const okCompletion = `{"choices":[{"message":{"role":"assistant","content":"{\"action\":\"done\"}"},"finish_reason":"stop"}],
"usage":{"prompt_tokens":120,"completion_tokens":8,"total_tokens":128}}`

// -- Test Cases --

func TestNewOpenRouterClient_Validation(t *testing.T) {
	logger, _ := setupTestLogger(t)

	cfg := getValidLLMConfig(config.ProviderOpenRouter)
	cfg.APIKey = ""
	_, err := NewOpenRouterClient(cfg, logger)
	assert.ErrorContains(t, err, "API key is required")

	cfg = getValidLLMConfig(config.ProviderOpenRouter)
	client, err := NewOpenRouterClient(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenRouterEndpoint, client.endpoint)
	assert.Equal(t, cfg.APITimeout, client.httpClient.Timeout)
}

func TestOpenRouterComplete_Success(t *testing.T) {
	req := createTestRequest()

	client, logs := setupOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.test", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "odin", r.Header.Get("X-Title"))

		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			Messages    []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "test-model", payload.Model)
		assert.Equal(t, 256, payload.MaxTokens)

		require.Len(t, payload.Messages, 4, "system + 2 history + current turn")
		assert.Equal(t, "system", payload.Messages[0].Role)
		assert.Equal(t, "assistant", payload.Messages[2].Role)

		var parts []contentPart
		require.NoError(t, json.Unmarshal(payload.Messages[3].Content, &parts))
		require.Len(t, parts, 2)
		assert.Equal(t, req.Prompt, parts[0].Text)
		require.NotNil(t, parts[1].ImageURL)
		assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(req.Image.Data), parts[1].ImageURL.URL)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okCompletion))
	})

	text, err := client.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, `{"action":"done"}`, text)
	entries := logs.FilterMessage("LLM generation complete (OpenRouter)").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 128, entries[0].ContextMap()["total_tokens"])
}

func TestOpenRouterComplete_RetriesTransientErrors(t *testing.T) {
	var calls int32
	client, _ := setupOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(okCompletion))
	})

	text, err := client.Complete(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOpenRouterComplete_PermanentError(t *testing.T) {
	var calls int32
	client, logs := setupOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := client.Complete(context.Background(), createTestRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx errors are not retried")
	assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestOpenRouterComplete_ErrorInBody(t *testing.T) {
	client, _ := setupOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","code":404}}`))
	})

	_, err := client.Complete(context.Background(), createTestRequest())
	assert.ErrorContains(t, err, "model not found")
}

func TestOpenRouterComplete_NoChoices(t *testing.T) {
	client, _ := setupOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), createTestRequest())
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenRouterComplete_ContextCancelled(t *testing.T) {
	client, _ := setupOpenRouterClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected after cancellation")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, createTestRequest())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "context canceled"))
}

func TestBuildRequestPayload_OptionsOverride(t *testing.T) {
	logger, _ := setupTestLogger(t)
	client, err := NewOpenRouterClient(getValidLLMConfig(config.ProviderOpenRouter), logger)
	require.NoError(t, err)

	temp := float32(0.9)
	req := createTestRequest()
	req.Image = nil
	req.Options.Temperature = &temp
	req.Options.MaxTokens = 64

	payload := client.buildRequestPayload(req)

	assert.Equal(t, float32(0.9), payload.Temperature)
	assert.Equal(t, 64, payload.MaxTokens)
	last := payload.Messages[len(payload.Messages)-1]
	parts, ok := last.Content.([]contentPart)
	require.True(t, ok)
	assert.Len(t, parts, 1, "no image part without a screenshot")
}
