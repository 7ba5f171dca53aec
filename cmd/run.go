package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/internal/config"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd(a *app) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run a single task and exit",
		Example: `  odin run "open the settings page and enable dark mode"
  odin run --start-url https://example.com --max-steps 20 "find the contact email"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				return fmt.Errorf("task must not be empty")
			}
			if err := applyOverrides(cmd.Flags(), a.cfg); err != nil {
				return err
			}

			a.logger.Info("Starting task", zap.String("task", task), zap.Int("max_steps", a.cfg.Agent().MaxSteps))
			components, err := initializeComponents(ctx, a.cfg, a.logger)
			defer components.Shutdown()
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}

			res, err := components.executeTask(ctx, task, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return outcomeError(res)
		},
	}
	addOverrideFlags(runCmd.Flags())
	return runCmd
}

// addOverrideFlags registers the flags shared by run and interactive.
func addOverrideFlags(fs *pflag.FlagSet) {
	fs.Int("max-steps", 0, "maximum number of steps (overrides config/env)")
	fs.Bool("no-grid", false, "disable the grid overlay")
	fs.Int("grid-step", 0, "grid cell size in pixels (overrides config/env)")
	fs.String("provider", "", "model provider: gemini or openrouter (overrides config/env)")
	fs.String("model", "", "model name (overrides config/env)")
	fs.String("start-url", "", "page to open at the start of each run")
	fs.Bool("headless", false, "run the browser without a window")
	fs.Bool("persist", false, "store the run in the database (requires store.url)")
}

// applyOverrides copies explicitly set flags onto cfg and revalidates it.
func applyOverrides(fs *pflag.FlagSet, cfg config.Interface) error {
	if fs.Changed("max-steps") {
		n, _ := fs.GetInt("max-steps")
		cfg.SetAgentMaxSteps(n)
	}
	if fs.Changed("no-grid") {
		noGrid, _ := fs.GetBool("no-grid")
		cfg.SetAgentUseGrid(!noGrid)
	}
	if fs.Changed("grid-step") {
		n, _ := fs.GetInt("grid-step")
		cfg.SetAgentGridStep(n)
	}
	if fs.Changed("provider") {
		p, _ := fs.GetString("provider")
		cfg.SetLLMProvider(config.LLMProvider(strings.ToLower(p)))
	}
	if fs.Changed("model") {
		m, _ := fs.GetString("model")
		cfg.SetLLMModel(m)
	}
	if fs.Changed("start-url") {
		u, _ := fs.GetString("start-url")
		cfg.SetBrowserStartURL(u)
	}
	if fs.Changed("headless") {
		h, _ := fs.GetBool("headless")
		cfg.SetBrowserHeadless(h)
	}
	if fs.Changed("persist") {
		p, _ := fs.GetBool("persist")
		cfg.SetStoreEnabled(p)
	}

	if v, ok := cfg.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}
