// internal/llmclient/router.go
package llmclient

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/api/schemas"
)

// FallbackRouter implements schemas.LLMClient by sending each request to a
// primary client and, when that fails, to a fallback client.
type FallbackRouter struct {
	logger   *zap.Logger
	primary  schemas.LLMClient
	fallback schemas.LLMClient
}

// NewFallbackRouter creates a router over two clients.
func NewFallbackRouter(logger *zap.Logger, primary, fallback schemas.LLMClient) (*FallbackRouter, error) {
	if primary == nil || fallback == nil {
		return nil, fmt.Errorf("both primary and fallback clients must be provided")
	}
	return &FallbackRouter{
		logger:   logger.Named("llm_router"),
		primary:  primary,
		fallback: fallback,
	}, nil
}

// Complete tries the primary client first. Cancellation is never retried on
// the fallback.
func (r *FallbackRouter) Complete(ctx context.Context, req schemas.CompletionRequest) (string, error) {
	text, err := r.primary.Complete(ctx, req)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	r.logger.Warn("Primary model failed, routing to fallback.", zap.Error(err))
	text, fbErr := r.fallback.Complete(ctx, req)
	if fbErr != nil {
		return "", fmt.Errorf("primary model: %v; fallback model: %w", err, fbErr)
	}
	return text, nil
}

// Close closes both clients.
func (r *FallbackRouter) Close() error {
	return errors.Join(r.primary.Close(), r.fallback.Close())
}
