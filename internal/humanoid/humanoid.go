// -- internal/humanoid/humanoid.go --
package humanoid

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/config"
)

// Humanoid is the execution backend. It turns validated actions into
// human-like pointer trajectories and key events on a Driver.
type Humanoid struct {
	driver Driver
	cfg    config.HumanoidConfig
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
	// Last known cursor position.
	pos Vector2D
}

// Option configures a Humanoid.
type Option func(*Humanoid)

// WithRand injects the random source used for jitter and timing.
func WithRand(rng *rand.Rand) Option {
	return func(h *Humanoid) { h.rng = rng }
}

// WithSleep replaces the context-aware sleep.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(h *Humanoid) { h.sleep = fn }
}

// WithClock replaces the wall clock used to time actions.
func WithClock(now func() time.Time) Option {
	return func(h *Humanoid) { h.now = now }
}

// WithStartPosition sets the assumed initial cursor position.
func WithStartPosition(p Vector2D) Option {
	return func(h *Humanoid) { h.pos = p }
}

// New creates a Humanoid over driver.
func New(driver Driver, cfg config.HumanoidConfig, logger *zap.Logger, opts ...Option) *Humanoid {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Humanoid{
		driver: driver,
		cfg:    cfg,
		logger: logger.Named("humanoid"),
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.rng == nil {
		h.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return h
}

// Position returns the last known cursor position.
func (h *Humanoid) Position() Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *Humanoid) setPosition(p Vector2D) {
	h.mu.Lock()
	h.pos = p
	h.mu.Unlock()
}

// Perform executes a. Driver failures are reported as a failed outcome;
// only context cancellation is returned as an error.
func (h *Humanoid) Perform(ctx context.Context, a action.Action) (schemas.ExecutionOutcome, error) {
	start := h.now()
	err := h.dispatch(ctx, a)
	elapsed := h.now().Sub(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return schemas.ExecutionOutcome{}, ctxErr
		}
		h.logger.Warn("Action failed.",
			zap.String("action", a.Summary()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return schemas.Failure(err.Error(), elapsed), nil
	}
	h.logger.Debug("Action performed.", zap.String("action", a.Summary()), zap.Duration("elapsed", elapsed))
	return schemas.Success(elapsed), nil
}

func (h *Humanoid) dispatch(ctx context.Context, a action.Action) error {
	if h.driver == nil {
		return fmt.Errorf("humanoid: no driver configured")
	}
	switch a.Kind {
	case action.KindClick:
		return h.click(ctx, FromPoint(a.Point), toButton(a.Button), 1)
	case action.KindDoubleClick:
		return h.click(ctx, FromPoint(a.Point), ButtonLeft, 2)
	case action.KindRightClick:
		return h.click(ctx, FromPoint(a.Point), ButtonRight, 1)
	case action.KindMove:
		return h.moveTo(ctx, FromPoint(a.Point), a.Duration, 0)
	case action.KindDrag:
		return h.drag(ctx, FromPoint(a.Point), FromPoint(a.End), a.Duration)
	case action.KindType:
		return h.typeText(ctx, a.Text, a.Duration)
	case action.KindKey:
		return h.hotkey(ctx, a.Keys)
	case action.KindHotkey:
		return h.hotkey(ctx, a.Keys)
	case action.KindScroll:
		return h.scroll(ctx, a)
	case action.KindWait:
		return h.pause(ctx, a.Duration)
	case action.KindDone, action.KindFail:
		return nil
	default:
		return fmt.Errorf("humanoid: unsupported action kind %q", a.Kind)
	}
}

// pause sleeps for d, skipping non-positive durations.
func (h *Humanoid) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return h.sleep(ctx, d)
}

// between returns a random duration in [lo, hi].
func (h *Humanoid) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo + time.Duration(h.rng.Int63n(int64(hi-lo)+1))
}

func toButton(b action.MouseButton) MouseButton {
	switch b {
	case action.ButtonRight:
		return ButtonRight
	case action.ButtonMiddle:
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}

// buttonMask converts a button into the held-buttons bitfield.
func buttonMask(b MouseButton) int64 {
	switch b {
	case ButtonLeft:
		return 1
	case ButtonRight:
		return 2
	case ButtonMiddle:
		return 4
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
