// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/config"
)

// GeminiClient implements schemas.LLMClient on the Gemini API through the
// genai SDK.
type GeminiClient struct {
	client         *genai.Client
	model          string
	config         config.LLMConfig
	logger         *zap.Logger
	backoffFactory func() backoff.BackOff
}

// NewGeminiClient initializes the client. cfg.Endpoint overrides the API base
// URL.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		model:          cfg.Model,
		config:         cfg,
		logger:         logger.Named("llm_client.gemini"),
		backoffFactory: newBackOffFactory(cfg.MaxRetryElapsed),
	}, nil
}

// Complete sends the request with retries on transient API errors.
func (c *GeminiClient) Complete(ctx context.Context, req schemas.CompletionRequest) (string, error) {
	contents := c.buildContents(req)
	genConfig := c.buildConfig(req)

	var text string
	operation := func() error {
		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
		if err != nil {
			return c.handleAPIError(ctx, err)
		}
		if len(resp.Candidates) == 0 {
			if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (reason: %s)", resp.PromptFeedback.BlockReason))
			}
			return backoff.Permanent(errors.New("gemini API returned no candidates"))
		}

		out := resp.Text()
		if out == "" {
			reason := resp.Candidates[0].FinishReason
			if reason == genai.FinishReasonSafety || reason == genai.FinishReasonBlocklist {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the response (reason: %s)", reason))
			}
			return fmt.Errorf("gemini API returned empty content (reason: %s)", reason)
		}

		fields := []zap.Field{zap.String("model", c.model), zap.Duration("duration", time.Since(start))}
		if u := resp.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("completion_tokens", u.CandidatesTokenCount),
				zap.Int32("total_tokens", u.TotalTokenCount))
		}
		c.logger.Info("LLM generation complete (Gemini)", fields...)
		text = out
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) buildContents(req schemas.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == schemas.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

func (c *GeminiClient) buildConfig(req schemas.CompletionRequest) *genai.GenerateContentConfig {
	temperature := c.config.Temperature
	if req.Options.Temperature != nil {
		temperature = *req.Options.Temperature
	}
	maxTokens := c.config.MaxTokens
	if req.Options.MaxTokens > 0 {
		maxTokens = req.Options.MaxTokens
	}

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return gc
}

// handleAPIError marks an SDK error as retryable or permanent.
func (c *GeminiClient) handleAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	if apiErr, ok := asAPIError(err); ok {
		c.logger.Error("Gemini API returned error status",
			zap.Int("status", apiErr.Code),
			zap.String("message", apiErr.Message))
		wrapped := fmt.Errorf("gemini API error: status %d: %s", apiErr.Code, apiErr.Message)
		if retryableStatus(apiErr.Code) {
			return wrapped
		}
		return backoff.Permanent(wrapped)
	}
	c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return fmt.Errorf("gemini request failed: %w", err)
}

// Close is a no-op for the SDK client.
func (c *GeminiClient) Close() error { return nil }

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}
