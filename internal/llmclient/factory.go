// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/config"
)

// NewClient creates the model client described by cfg. When a fallback model
// is configured the result is a FallbackRouter over two clients of the same
// provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	primary, err := newProviderClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackModel == "" || cfg.FallbackModel == cfg.Model {
		return primary, nil
	}

	fbCfg := cfg
	fbCfg.Model = cfg.FallbackModel
	fbCfg.FallbackModel = ""
	fallback, err := newProviderClient(ctx, fbCfg, logger)
	if err != nil {
		_ = primary.Close()
		return nil, fmt.Errorf("failed to create fallback client: %w", err)
	}
	return NewFallbackRouter(logger, primary, fallback)
}

func newProviderClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	case config.ProviderOpenRouter:
		return NewOpenRouterClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenRouter)
	}
}
