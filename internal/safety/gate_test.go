package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/config"
)

// -- Test Helpers --

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.SafetyConfig {
	return config.SafetyConfig{
		MaxActionsPerMinute: 60,
		MinActionDelay:      100 * time.Millisecond,
		DeniedHotkeys:       config.DefaultDeniedHotkeys,
		ScreenBounds:        config.BoundsConfig{Width: 1920, Height: 1080},
	}
}

func newTestGate(t *testing.T, mutate func(*config.SafetyConfig)) *Gate {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	policy, err := PolicyFromConfig(cfg)
	require.NoError(t, err)
	return NewGate(policy, zap.NewNop())
}

func click(t *testing.T, x, y int) action.Action {
	t.Helper()
	a, err := action.Click(action.Point{X: x, Y: y}, action.ButtonLeft)
	require.NoError(t, err)
	return a
}

// -- Rate Limiting --

func TestGate_RateLimit(t *testing.T) {
	g := newTestGate(t, nil)
	a := click(t, 10, 10)

	now := epoch
	for i := 0; i < 60; i++ {
		v := g.Evaluate(a, now)
		require.True(t, v.Approved, "action %d should be approved, got %s", i+1, v)
		g.Record(a, now)
		now = now.Add(500 * time.Millisecond)
	}

	v := g.Evaluate(a, now)
	assert.False(t, v.Approved)
	assert.Equal(t, ReasonRateLimited, v.Reason)
	assert.Equal(t, 30*time.Second, v.RetryAfter, "the oldest execution leaves the window at epoch+60s")

	// Once the first execution is a full window old it no longer counts.
	v = g.Evaluate(a, epoch.Add(RateWindow))
	assert.True(t, v.Approved, "got %s", v)
}

func TestGate_RateLimitWindowSlides(t *testing.T) {
	g := newTestGate(t, func(c *config.SafetyConfig) { c.MaxActionsPerMinute = 2 })
	a := click(t, 10, 10)

	g.Record(a, epoch)
	g.Record(a, epoch.Add(10*time.Second))
	assert.Equal(t, ReasonRateLimited, g.Evaluate(a, epoch.Add(59*time.Second)).Reason)
	assert.True(t, g.Evaluate(a, epoch.Add(61*time.Second)).Approved)

	g.Record(a, epoch.Add(61*time.Second))
	assert.Equal(t, 2, g.Stats(epoch.Add(61*time.Second)).InWindow, "pruned entries are not counted")
}

// -- Cooldown --

func TestGate_Cooldown(t *testing.T) {
	g := newTestGate(t, nil)
	a := click(t, 10, 10)
	g.Record(a, epoch)

	v := g.Evaluate(a, epoch.Add(50*time.Millisecond))
	assert.False(t, v.Approved)
	assert.Equal(t, ReasonCooldown, v.Reason)
	assert.Equal(t, 50*time.Millisecond, v.RetryAfter)

	assert.True(t, g.Evaluate(a, epoch.Add(100*time.Millisecond)).Approved, "exactly min delay is approved")
	assert.True(t, g.Evaluate(a, epoch.Add(time.Second)).Approved)
}

func TestGate_FirstActionHasNoCooldown(t *testing.T) {
	g := newTestGate(t, nil)
	assert.True(t, g.Evaluate(click(t, 1, 1), epoch).Approved)
}

// -- Policy Checks --

func TestGate_DeniedKinds(t *testing.T) {
	g := newTestGate(t, func(c *config.SafetyConfig) { c.DeniedActions = []string{"drag", "Right_Click"} })

	drag, err := action.Drag(action.Point{X: 1, Y: 1}, action.Point{X: 5, Y: 5}, 0)
	require.NoError(t, err)
	v := g.Evaluate(drag, epoch)
	assert.Equal(t, ReasonDestructive, v.Reason)

	v = g.Evaluate(action.RightClick(action.Point{X: 1, Y: 1}), epoch)
	assert.Equal(t, ReasonDestructive, v.Reason)

	assert.True(t, g.Evaluate(click(t, 1, 1), epoch).Approved)
}

func TestGate_DeniedHotkeys(t *testing.T) {
	g := newTestGate(t, nil)

	tests := []struct {
		keys    []string
		blocked bool
	}{
		{[]string{"cmd", "q"}, true},
		{[]string{"q", "command"}, true},
		{[]string{"ctrl", "alt", "delete"}, true},
		{[]string{"command", "shift", "delete"}, true},
		{[]string{"command", "c"}, false},
		{[]string{"alt", "delete"}, false},
	}
	for _, tt := range tests {
		a, err := action.Hotkey(tt.keys...)
		require.NoError(t, err)
		v := g.Evaluate(a, epoch)
		if tt.blocked {
			assert.Equal(t, ReasonDestructive, v.Reason, "%v", tt.keys)
		} else {
			assert.True(t, v.Approved, "%v: %s", tt.keys, v)
		}
	}
}

func TestGate_BoundsRecheck(t *testing.T) {
	g := newTestGate(t, func(c *config.SafetyConfig) { c.EdgeMargin = 10 })

	v := g.Evaluate(click(t, 5, 500), epoch)
	assert.Equal(t, ReasonOutOfBounds, v.Reason)

	drag, err := action.Drag(action.Point{X: 100, Y: 100}, action.Point{X: 1915, Y: 100}, 0)
	require.NoError(t, err)
	assert.Equal(t, ReasonOutOfBounds, g.Evaluate(drag, epoch).Reason)

	assert.True(t, g.Evaluate(click(t, 10, 10), epoch).Approved)
}

func TestGate_CheckOrder(t *testing.T) {
	g := newTestGate(t, func(c *config.SafetyConfig) { c.DeniedActions = []string{"click"} })
	g.Record(click(t, 1, 1), epoch)

	// Denylist wins over both bounds and cooldown.
	v := g.Evaluate(click(t, 5000, 5000), epoch)
	assert.Equal(t, ReasonDestructive, v.Reason)

	// Bounds wins over cooldown.
	move, err := action.Move(action.Point{X: 5000, Y: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, ReasonOutOfBounds, g.Evaluate(move, epoch).Reason)
}

// -- State Semantics --

func TestGate_EvaluateIsIdempotent(t *testing.T) {
	g := newTestGate(t, func(c *config.SafetyConfig) { c.MaxActionsPerMinute = 1 })
	a := click(t, 1, 1)

	for i := 0; i < 5; i++ {
		assert.True(t, g.Evaluate(a, epoch).Approved, "evaluation must not consume budget")
	}
	g.Record(a, epoch)
	assert.Equal(t, ReasonRateLimited, g.Evaluate(a, epoch.Add(time.Second)).Reason)
}

func TestGate_Reset(t *testing.T) {
	g := newTestGate(t, nil)
	a := click(t, 1, 1)
	g.Record(a, epoch)
	g.Reset()

	assert.True(t, g.Evaluate(a, epoch).Approved)
	assert.Zero(t, g.Stats(epoch).InWindow)
}

func TestPolicyFromConfig_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.DeniedActions = []string{"format_disk"}
	_, err := PolicyFromConfig(cfg)
	assert.ErrorContains(t, err, "format_disk")

	cfg = testConfig()
	cfg.DeniedHotkeys = [][]string{{"command", "hyper"}}
	_, err = PolicyFromConfig(cfg)
	assert.ErrorContains(t, err, "hyper")
}
