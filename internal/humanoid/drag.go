// -- internal/humanoid/drag.go --
package humanoid

import (
	"context"
	"time"
)

// drag presses the left button at from, moves to to while holding it and
// releases. A positive duration sets the time spent moving.
func (h *Humanoid) drag(ctx context.Context, from, to Vector2D, duration time.Duration) error {
	if err := h.moveTo(ctx, from, 0, 0); err != nil {
		return err
	}
	if err := h.press(ctx, ButtonLeft, 1); err != nil {
		return err
	}

	err := h.pause(ctx, h.holdDuration())
	if err == nil {
		err = h.moveTo(ctx, to, duration, buttonMask(ButtonLeft))
	}
	if err == nil {
		err = h.pause(ctx, h.holdDuration())
	}
	if err != nil {
		// Leave the button up if the drag is abandoned part way.
		_ = h.release(context.WithoutCancel(ctx), ButtonLeft, 1)
		return err
	}
	return h.release(ctx, ButtonLeft, 1)
}
