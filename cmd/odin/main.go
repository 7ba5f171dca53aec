// File: cmd/odin/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/odin/cmd"
	"github.com/xkilldash9x/odin/internal/observability"
)

const (
	exitFailure     = 1
	exitInterrupted = 130
)

// osExit is replaced in tests.
var osExit = os.Exit

func main() {
	defer handlePanic()

	// Set up a context that listens for interrupt signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := exitCode(cmd.Execute(ctx)); code != 0 {
		osExit(code)
	}
}

// exitCode maps the command error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cmd.ErrInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}

// handlePanic flushes logs and reports the panic before exiting.
func handlePanic() {
	if r := recover(); r != nil {
		observability.Sync()
		fmt.Fprintf(os.Stderr, "panic: %v\n\n%s\n", r, debug.Stack())
		osExit(exitFailure)
	}
}
