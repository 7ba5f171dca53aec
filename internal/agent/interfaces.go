// internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
)

// Capturer produces the observation for each step.
type Capturer interface {
	Capture(ctx context.Context, opts schemas.CaptureOptions) (*schemas.Screenshot, error)
}

// ScopedCapturer is a Capturer holding resources for the duration of a run.
// Open is called during INIT and Close on every exit path after a successful
// Open.
type ScopedCapturer interface {
	Capturer
	Open(ctx context.Context) error
	Close() error
}

// Executor performs approved actions. A failed outcome is an ordinary result;
// a non-nil error means the backend itself is broken.
type Executor interface {
	Perform(ctx context.Context, a action.Action) (schemas.ExecutionOutcome, error)
}
