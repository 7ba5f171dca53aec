package humanoid

import (
	"context"
	"time"
)

// Gap between the two clicks of a double click.
const (
	doubleClickGapMin = 60 * time.Millisecond
	doubleClickGapMax = 120 * time.Millisecond
)

// click moves to at and presses button count times. Each press carries its
// running click count so the target sees a proper double click.
func (h *Humanoid) click(ctx context.Context, at Vector2D, button MouseButton, count int) error {
	if err := h.moveTo(ctx, at, 0, 0); err != nil {
		return err
	}
	for i := 1; i <= count; i++ {
		if i > 1 {
			if err := h.pause(ctx, h.humanDelay(doubleClickGapMin, doubleClickGapMax)); err != nil {
				return err
			}
		}
		if err := h.press(ctx, button, i); err != nil {
			return err
		}
		if err := h.pause(ctx, h.holdDuration()); err != nil {
			return err
		}
		if err := h.release(ctx, button, i); err != nil {
			return err
		}
	}
	return nil
}

func (h *Humanoid) press(ctx context.Context, button MouseButton, clickCount int) error {
	p := h.Position()
	return h.driver.DispatchMouseEvent(ctx, MouseEventData{
		Type:       MousePress,
		X:          p.X,
		Y:          p.Y,
		Button:     button,
		ClickCount: clickCount,
		Buttons:    buttonMask(button),
	})
}

func (h *Humanoid) release(ctx context.Context, button MouseButton, clickCount int) error {
	p := h.Position()
	return h.driver.DispatchMouseEvent(ctx, MouseEventData{
		Type:       MouseRelease,
		X:          p.X,
		Y:          p.Y,
		Button:     button,
		ClickCount: clickCount,
	})
}

// holdDuration is how long a button stays pressed.
func (h *Humanoid) holdDuration() time.Duration {
	return h.humanDelay(h.cfg.ClickHoldMin, h.cfg.ClickHoldMax)
}

// humanDelay is a random delay in [lo, hi], or zero with the model disabled.
func (h *Humanoid) humanDelay(lo, hi time.Duration) time.Duration {
	if !h.cfg.Enabled {
		return 0
	}
	return h.between(lo, hi)
}
