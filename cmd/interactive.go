package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/internal/agent"
)

const banner = `
  odin interactive
  Describe a task and press enter. Type quit, exit or q to leave.

`

// taskRunner executes one task. components satisfies it.
type taskRunner interface {
	executeTask(ctx context.Context, task string, out io.Writer) (agent.RunResult, error)
}

func newInteractiveCmd(a *app) *cobra.Command {
	interactiveCmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"repl", "i"},
		Short:   "Read tasks from the terminal and run them one after another",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := applyOverrides(cmd.Flags(), a.cfg); err != nil {
				return err
			}

			components, err := initializeComponents(ctx, a.cfg, a.logger)
			defer components.Shutdown()
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			return repl(ctx, components, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
		},
	}
	addOverrideFlags(interactiveCmd.Flags())
	return interactiveCmd
}

// repl reads one task per line until EOF, a quit word or cancellation.
func repl(ctx context.Context, runner taskRunner, in io.Reader, out io.Writer, logger *zap.Logger) error {
	fmt.Fprint(out, banner)
	scanner := bufio.NewScanner(in)

	for {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		fmt.Fprint(out, "odin > ")
		if !scanner.Scan() {
			break // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye.")
			return nil
		}

		res, err := runner.executeTask(ctx, line, out)
		if err != nil {
			logger.Error("Task could not be started", zap.Error(err))
			fmt.Fprintln(out, "Error:", err)
			continue
		}
		printResult(out, res)
		if errors.Is(outcomeError(res), ErrInterrupted) {
			return ErrInterrupted
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading from stdin: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}
