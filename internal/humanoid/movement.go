package humanoid

import (
	"context"
	"time"
)

// moveTo moves the cursor to target while holding buttons. A positive
// duration overrides the Fitts's law estimate. With the model disabled the
// cursor jumps straight to the target.
func (h *Humanoid) moveTo(ctx context.Context, target Vector2D, duration time.Duration, buttons int64) error {
	start := h.Position()
	dist := start.Dist(target)

	if !h.cfg.Enabled || dist < 1 {
		if err := h.move(ctx, target, buttons); err != nil {
			return err
		}
		return h.pause(ctx, duration)
	}

	if duration <= 0 {
		duration = h.movementDuration(dist)
	}
	steps := int(duration / moveInterval)
	if steps < 2 {
		steps = 2
	}
	if steps > maxPathSteps {
		steps = maxPathSteps
	}
	interval := duration / time.Duration(steps)

	points := h.path(start, target, steps)
	for _, p := range points[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.move(ctx, p, buttons); err != nil {
			return err
		}
		if err := h.pause(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

func (h *Humanoid) move(ctx context.Context, p Vector2D, buttons int64) error {
	err := h.driver.DispatchMouseEvent(ctx, MouseEventData{
		Type:    MouseMove,
		X:       p.X,
		Y:       p.Y,
		Button:  ButtonNone,
		Buttons: buttons,
	})
	if err != nil {
		return err
	}
	h.setPosition(p)
	return nil
}
