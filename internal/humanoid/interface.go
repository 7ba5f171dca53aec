// Filename: internal/humanoid/interface.go
package humanoid

import (
	"context"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
)

// Driver is the low-level input device the humanoid model drives. It is
// agnostic of the underlying automation technology.
type Driver interface {
	// DispatchMouseEvent sends a single mouse event.
	DispatchMouseEvent(ctx context.Context, data MouseEventData) error
	// DispatchKeyEvent sends a single key event.
	DispatchKeyEvent(ctx context.Context, data KeyEventData) error
	// InsertText inserts text into the focused element without key events.
	InsertText(ctx context.Context, text string) error
}

// Performer executes validated actions.
type Performer interface {
	Perform(ctx context.Context, a action.Action) (schemas.ExecutionOutcome, error)
}

var _ Performer = (*Humanoid)(nil)
