// internal/llmclient/openrouter_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/config"
)

// DefaultOpenRouterEndpoint is the OpenAI-compatible API base URL.
const DefaultOpenRouterEndpoint = "https://openrouter.ai/api/v1"

// OpenRouterClient implements schemas.LLMClient against OpenRouter's chat
// completions API.
type OpenRouterClient struct {
	apiKey         string
	endpoint       string
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         *zap.Logger
	config         config.LLMConfig
	backoffFactory func() backoff.BackOff
}

// -- OpenRouter API Request/Response Structures --

type chatMessage struct {
	Role string `json:"role"`
	// Content is a string or a []contentPart.
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string      `json:"message"`
		Code    interface{} `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenRouterClient initializes the client. Requests are paced by a token
// bucket of cfg.RequestsPerSecond with cfg.Burst.
func NewOpenRouterClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("OpenRouter model is required")
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultOpenRouterEndpoint
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &OpenRouterClient{
		apiKey:         cfg.APIKey,
		endpoint:       endpoint,
		httpClient:     &http.Client{Timeout: cfg.APITimeout},
		limiter:        rate.NewLimiter(limit, burst),
		logger:         logger.Named("llm_client.openrouter"),
		config:         cfg,
		backoffFactory: newBackOffFactory(cfg.MaxRetryElapsed),
	}, nil
}

// Complete sends the request with retries on transient API errors.
func (c *OpenRouterClient) Complete(ctx context.Context, req schemas.CompletionRequest) (string, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var content string
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		if c.config.Referer != "" {
			httpReq.Header.Set("HTTP-Referer", c.config.Referer)
		}
		if c.config.AppTitle != "" {
			httpReq.Header.Set("X-Title", c.config.AppTitle)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		duration := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var payload chatResponse
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if payload.Error != nil {
			return backoff.Permanent(fmt.Errorf("openrouter API error: %s", payload.Error.Message))
		}
		if len(payload.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("openrouter API returned no choices"))
		}
		text := payload.Choices[0].Message.Content
		if text == "" {
			return fmt.Errorf("openrouter API returned empty content (reason: %s)", payload.Choices[0].FinishReason)
		}

		c.logger.Info("LLM generation complete (OpenRouter)",
			zap.String("model", c.config.Model),
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", payload.Usage.PromptTokens),
			zap.Int("completion_tokens", payload.Usage.CompletionTokens),
			zap.Int("total_tokens", payload.Usage.TotalTokens),
		)
		content = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func (c *OpenRouterClient) buildRequestPayload(req schemas.CompletionRequest) chatRequest {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL(req.Image)}})
	}
	messages = append(messages, chatMessage{Role: string(schemas.RoleUser), Content: parts})

	payload := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if req.Options.Temperature != nil {
		payload.Temperature = *req.Options.Temperature
	}
	if req.Options.MaxTokens > 0 {
		payload.MaxTokens = req.Options.MaxTokens
	}
	return payload
}

func dataURL(s *schemas.Screenshot) string {
	mime := s.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

func (c *OpenRouterClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("OpenRouter API returned error status", zap.Int("status", statusCode), zap.String("response", truncateBody(body)))
	err := fmt.Errorf("openrouter API error: status %d, body: %s", statusCode, truncateBody(body))
	if retryableStatus(statusCode) {
		return err
	}
	return backoff.Permanent(err)
}

// Close releases idle connections.
func (c *OpenRouterClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
