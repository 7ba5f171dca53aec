package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/agent"
	"github.com/xkilldash9x/odin/internal/browser"
	"github.com/xkilldash9x/odin/internal/config"
	"github.com/xkilldash9x/odin/internal/humanoid"
	"github.com/xkilldash9x/odin/internal/llmclient"
	"github.com/xkilldash9x/odin/internal/perception"
	"github.com/xkilldash9x/odin/internal/store"
)

const persistTimeout = 10 * time.Second

// components holds the long-lived services shared by every run of one
// invocation. A REPL session runs many tasks against one browser.
type components struct {
	cfg     *config.Config
	logger  *zap.Logger
	Session *browser.Session
	LLM     schemas.LLMClient
	Store   *store.Store
	DBPool  *pgxpool.Pool
}

// initializeComponents handles dependency injection.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{cfg: cfg, logger: logger}

	llm, err := llmclient.NewClient(ctx, cfg.LLM(), logger)
	if err != nil {
		return c, fmt.Errorf("failed to create model client: %w", err)
	}
	c.LLM = llm

	if cfg.Store().Enabled {
		pool, err := pgxpool.New(ctx, cfg.Store().URL)
		if err != nil {
			return c, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DBPool = pool
		st, err := store.New(ctx, pool, logger)
		if err != nil {
			return c, err
		}
		if cfg.Store().AutoMigrate {
			if err := st.EnsureSchema(ctx); err != nil {
				return c, err
			}
		}
		c.Store = st
	}

	bounds := cfg.Agent().Safety.ScreenBounds
	c.Session = browser.NewSession(cfg.Browser(), bounds.Width, bounds.Height, logger)
	if err := c.Session.Start(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Shutdown releases everything initializeComponents created.
func (c *components) Shutdown() {
	if c.Session != nil {
		if err := c.Session.Close(); err != nil {
			c.logger.Warn("Error during browser shutdown", zap.Error(err))
		}
	}
	if c.LLM != nil {
		if err := c.LLM.Close(); err != nil {
			c.logger.Warn("Error closing model client", zap.Error(err))
		}
	}
	if c.DBPool != nil {
		c.DBPool.Close()
	}
}

// executeTask runs one task in a fresh tab and persists the result when a
// store is configured.
func (c *components) executeTask(ctx context.Context, task string, out io.Writer) (agent.RunResult, error) {
	tab := c.Session.NewTab()
	screen := perception.NewScreen(tab, c.logger)
	performer := humanoid.New(tab, c.cfg.Browser().Humanoid, c.logger)

	ag, err := agent.New(c.cfg.Agent(), screen, c.LLM, performer,
		agent.WithLogger(c.logger),
		agent.WithStepHook(stepPrinter(out)),
	)
	if err != nil {
		return agent.RunResult{}, fmt.Errorf("failed to create agent: %w", err)
	}

	res := ag.Run(ctx, task)

	if c.Store != nil {
		// The run may have ended because ctx was cancelled; the record is still written.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := c.Store.SaveRun(saveCtx, store.NewRunRecord(res)); err != nil {
			c.logger.Error("Failed to persist run", zap.String("run_id", res.RunID), zap.Error(err))
		}
	}
	return res, nil
}

// outcomeError maps a finished run to the command's error.
func outcomeError(res agent.RunResult) error {
	switch {
	case res.Success:
		return nil
	case res.FailureCode == agent.ErrCodeCancelled:
		return ErrInterrupted
	default:
		return fmt.Errorf("%w: %s", ErrRunFailed, res.FailureCode)
	}
}
