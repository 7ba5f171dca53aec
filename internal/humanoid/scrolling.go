package humanoid

import (
	"context"
	"time"

	"github.com/xkilldash9x/odin/internal/action"
)

const (
	defaultScrollNotch = 100.0
	notchGapMin        = 30 * time.Millisecond
	notchGapMax        = 80 * time.Millisecond
)

// scroll dispatches wheel events at the action's point, or at the current
// cursor position when it has none. Positive amounts scroll up (or right).
// With the model enabled each notch is a separate wheel event.
func (h *Humanoid) scroll(ctx context.Context, a action.Action) error {
	if a.HasPoint {
		if err := h.moveTo(ctx, FromPoint(a.Point), 0, 0); err != nil {
			return err
		}
	}

	notch := h.cfg.ScrollNotch
	if notch <= 0 {
		notch = defaultScrollNotch
	}
	n := a.Scroll
	sign := 1.0
	if n < 0 {
		n, sign = -n, -1.0
	}

	events, per := n, notch
	if !h.cfg.Enabled {
		events, per = 1, notch*float64(n)
	}
	for i := 0; i < events; i++ {
		if i > 0 {
			if err := h.pause(ctx, h.between(notchGapMin, notchGapMax)); err != nil {
				return err
			}
		}
		if err := h.wheel(ctx, wheelDelta(sign*per, a.Horiz)); err != nil {
			return err
		}
	}
	return nil
}

// wheelDelta maps a signed scroll distance onto wheel deltas. A positive
// deltaY scrolls the page down, so upward scrolls are negated.
func wheelDelta(distance float64, horizontal bool) Vector2D {
	if horizontal {
		return Vector2D{X: distance}
	}
	return Vector2D{Y: -distance}
}

func (h *Humanoid) wheel(ctx context.Context, delta Vector2D) error {
	p := h.Position()
	return h.driver.DispatchMouseEvent(ctx, MouseEventData{
		Type:   MouseWheel,
		X:      p.X,
		Y:      p.Y,
		Button: ButtonNone,
		DeltaX: delta.X,
		DeltaY: delta.Y,
	})
}
