// Filename: internal/humanoid/humanoid_test.go
package humanoid

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/config"
)

// =============================================================================
// Test Infrastructure: Mocks and Helpers
// =============================================================================

// mockDriver records dispatched events instead of sending them anywhere.
type mockDriver struct {
	mu       sync.Mutex
	mouse    []MouseEventData
	keys     []KeyEventData
	inserted []string

	// failOnCall makes the Nth dispatch (1-based, mouse and key combined) fail.
	failOnCall int
	returnErr  error
	calls      int
}

func (m *mockDriver) fail() error {
	m.calls++
	if m.failOnCall > 0 && m.calls >= m.failOnCall {
		return m.returnErr
	}
	return nil
}

func (m *mockDriver) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.mouse = append(m.mouse, data)
	return nil
}

func (m *mockDriver) DispatchKeyEvent(ctx context.Context, data KeyEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.keys = append(m.keys, data)
	return nil
}

func (m *mockDriver) InsertText(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, text)
	return nil
}

func (m *mockDriver) mouseOfType(t MouseEventType) []MouseEventData {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MouseEventData
	for _, e := range m.mouse {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// sleepRecorder records requested sleeps without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return nil
}

func testConfig(enabled bool) config.HumanoidConfig {
	return config.HumanoidConfig{
		Enabled:      enabled,
		FittsA:       80,
		FittsB:       120,
		Jitter:       0.1,
		ClickHoldMin: 50 * time.Millisecond,
		ClickHoldMax: 120 * time.Millisecond,
		KeyDelayMin:  30 * time.Millisecond,
		KeyDelayMax:  90 * time.Millisecond,
		ScrollNotch:  100,
	}
}

// newTestHumanoid creates a Humanoid with deterministic randomness and a
// recording sleep.
func newTestHumanoid(t *testing.T, enabled bool, opts ...Option) (*Humanoid, *mockDriver, *sleepRecorder) {
	t.Helper()
	driver := &mockDriver{}
	rec := &sleepRecorder{}
	base := []Option{WithRand(rand.New(rand.NewSource(12345))), WithSleep(rec.Sleep)}
	h := New(driver, testConfig(enabled), zap.NewNop(), append(base, opts...)...)
	return h, driver, rec
}

func mustClick(t *testing.T, x, y int) action.Action {
	t.Helper()
	a, err := action.Click(action.Point{X: x, Y: y}, action.ButtonLeft)
	require.NoError(t, err)
	return a
}

// =============================================================================
// Pointer Actions
// =============================================================================

func TestPerform_ClickDirect(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)

	outcome, err := h.Perform(context.Background(), mustClick(t, 250, 350))

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	require.Len(t, driver.mouse, 3)
	assert.Equal(t, MouseEventData{Type: MouseMove, X: 250, Y: 350, Button: ButtonNone}, driver.mouse[0])
	assert.Equal(t, MouseEventData{Type: MousePress, X: 250, Y: 350, Button: ButtonLeft, ClickCount: 1, Buttons: 1}, driver.mouse[1])
	assert.Equal(t, MouseEventData{Type: MouseRelease, X: 250, Y: 350, Button: ButtonLeft, ClickCount: 1}, driver.mouse[2])
	assert.Equal(t, Vector2D{X: 250, Y: 350}, h.Position())
}

func TestPerform_ClickWithTrajectory(t *testing.T) {
	h, driver, rec := newTestHumanoid(t, true)

	outcome, err := h.Perform(context.Background(), mustClick(t, 600, 400))

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())

	moves := driver.mouseOfType(MouseMove)
	require.Greater(t, len(moves), 2, "a trajectory is several move events")
	last := moves[len(moves)-1]
	assert.Equal(t, 600.0, last.X)
	assert.Equal(t, 400.0, last.Y)

	presses := driver.mouseOfType(MousePress)
	require.Len(t, presses, 1)
	assert.Equal(t, 600.0, presses[0].X)

	// The final sleep before release is the click hold.
	hold := rec.sleeps[len(rec.sleeps)-1]
	assert.GreaterOrEqual(t, hold, 50*time.Millisecond)
	assert.LessOrEqual(t, hold, 120*time.Millisecond)
}

func TestPerform_DoubleClickAndRightClick(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)

	_, err := h.Perform(context.Background(), action.DoubleClick(action.Point{X: 10, Y: 10}))
	require.NoError(t, err)

	presses := driver.mouseOfType(MousePress)
	releases := driver.mouseOfType(MouseRelease)
	require.Len(t, presses, 2)
	require.Len(t, releases, 2)
	assert.Equal(t, 1, presses[0].ClickCount)
	assert.Equal(t, 2, presses[1].ClickCount)
	assert.Equal(t, 2, releases[1].ClickCount)

	driver.mouse = nil
	_, err = h.Perform(context.Background(), action.RightClick(action.Point{X: 20, Y: 20}))
	require.NoError(t, err)
	presses = driver.mouseOfType(MousePress)
	require.Len(t, presses, 1)
	assert.Equal(t, ButtonRight, presses[0].Button)
	assert.Equal(t, int64(2), presses[0].Buttons)
}

func TestPerform_DragHoldsButton(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, true)
	a, err := action.Drag(action.Point{X: 100, Y: 100}, action.Point{X: 500, Y: 300}, 300*time.Millisecond)
	require.NoError(t, err)

	outcome, err := h.Perform(context.Background(), a)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())

	var pressedAt int
	for i, e := range driver.mouse {
		if e.Type == MousePress {
			pressedAt = i
			break
		}
	}
	require.NotZero(t, pressedAt)
	assert.Equal(t, 100.0, driver.mouse[pressedAt].X)

	held := driver.mouse[pressedAt+1 : len(driver.mouse)-1]
	require.NotEmpty(t, held)
	for _, e := range held {
		assert.Equal(t, MouseMove, e.Type)
		assert.Equal(t, int64(1), e.Buttons, "left button is held during the drag")
	}

	release := driver.mouse[len(driver.mouse)-1]
	assert.Equal(t, MouseRelease, release.Type)
	assert.Equal(t, 500.0, release.X)
	assert.Equal(t, 300.0, release.Y)
}

func TestPerform_DragReleasesOnFailure(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)
	driver.failOnCall = 3 // move, press, then the held move fails
	driver.returnErr = errors.New("target detached")
	a, err := action.Drag(action.Point{X: 1, Y: 1}, action.Point{X: 9, Y: 9}, 0)
	require.NoError(t, err)

	outcome, err := h.Perform(context.Background(), a)

	require.NoError(t, err)
	assert.False(t, outcome.Succeeded())
	assert.Contains(t, outcome.Reason, "target detached")
}

func TestPerform_MoveUsesRequestedDuration(t *testing.T) {
	h, _, rec := newTestHumanoid(t, true)
	a, err := action.Move(action.Point{X: 800, Y: 0}, time.Second)
	require.NoError(t, err)

	_, err = h.Perform(context.Background(), a)
	require.NoError(t, err)

	var total time.Duration
	for _, d := range rec.sleeps {
		total += d
	}
	assert.InDelta(t, float64(time.Second), float64(total), float64(10*time.Millisecond))
}

// =============================================================================
// Keyboard Actions
// =============================================================================

func TestPerform_TypeDirectInsertsText(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)
	a, err := action.TypeText("héllo wörld", 0)
	require.NoError(t, err)

	outcome, err := h.Perform(context.Background(), a)

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, []string{"héllo wörld"}, driver.inserted)
	assert.Empty(t, driver.keys)
}

func TestPerform_TypeKeystrokes(t *testing.T) {
	h, driver, rec := newTestHumanoid(t, true)
	a, err := action.TypeText("Hi\né", 40*time.Millisecond)
	require.NoError(t, err)

	_, err = h.Perform(context.Background(), a)
	require.NoError(t, err)

	require.Len(t, driver.keys, 6, "down and up for H, i and Enter")
	assert.Equal(t, KeyDown, driver.keys[0].Type)
	assert.Equal(t, "H", driver.keys[0].Text)
	assert.Equal(t, ModShift, driver.keys[0].Modifiers)
	assert.Equal(t, KeyUp, driver.keys[1].Type)
	assert.Equal(t, "i", driver.keys[2].Text)
	assert.Equal(t, ModNone, driver.keys[2].Modifiers)
	assert.Equal(t, "Enter", driver.keys[4].Key)
	assert.Equal(t, "\r", driver.keys[4].Text)

	assert.Equal(t, []string{"é"}, driver.inserted, "characters outside the layout are inserted")
	assert.Equal(t, []time.Duration{40 * time.Millisecond, 40 * time.Millisecond, 40 * time.Millisecond}, rec.sleeps)
}

func TestPerform_HotkeyOrder(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)
	a, err := action.Hotkey("ctrl", "shift", "t")
	require.NoError(t, err)

	outcome, err := h.Perform(context.Background(), a)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())

	type step struct {
		Type KeyEventType
		Key  string
		Mods KeyModifier
	}
	var got []step
	for _, k := range driver.keys {
		got = append(got, step{k.Type, k.Key, k.Modifiers})
	}
	assert.Equal(t, []step{
		{RawKeyDown, "Control", ModCtrl},
		{RawKeyDown, "Shift", ModCtrl | ModShift},
		{RawKeyDown, "t", ModCtrl | ModShift},
		{KeyUp, "t", ModCtrl | ModShift},
		{KeyUp, "Shift", ModCtrl},
		{KeyUp, "Control", ModNone},
	}, got)
	for _, k := range driver.keys {
		assert.Empty(t, k.Text, "shortcuts never insert text")
	}
}

func TestPerform_SingleKeyPress(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)
	a, err := action.KeyPress("return")
	require.NoError(t, err)

	_, err = h.Perform(context.Background(), a)
	require.NoError(t, err)

	require.Len(t, driver.keys, 2)
	assert.Equal(t, KeyEventData{Type: KeyDown, Key: "Enter", Code: "Enter", Text: "\r", WindowsVirtualKeyCode: 13}, driver.keys[0])
	assert.Equal(t, KeyEventData{Type: KeyUp, Key: "Enter", Code: "Enter", WindowsVirtualKeyCode: 13}, driver.keys[1])
}

func TestPerform_HotkeyReleasesPressedKeysOnFailure(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)
	driver.failOnCall = 2
	driver.returnErr = errors.New("boom")
	a, err := action.Hotkey("command", "q")
	require.NoError(t, err)

	outcome, err := h.Perform(context.Background(), a)

	require.NoError(t, err)
	assert.False(t, outcome.Succeeded())
	assert.Contains(t, outcome.Reason, "key down")
	// Only the first key down got through; its release also failed against
	// the broken driver, so nothing else was recorded.
	require.Len(t, driver.keys, 1)
	assert.Equal(t, "Meta", driver.keys[0].Key)
}

func TestPerform_UnknownKeyFails(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, false)
	a := action.Action{Kind: action.KindKey, Keys: []string{"hyper"}}

	outcome, err := h.Perform(context.Background(), a)

	require.NoError(t, err)
	assert.False(t, outcome.Succeeded())
	assert.Contains(t, outcome.Reason, `unknown key "hyper"`)
	assert.Empty(t, driver.keys)
}

// =============================================================================
// Scroll and Wait
// =============================================================================

func TestPerform_Scroll(t *testing.T) {
	up, err := action.ScrollBy(2, false, nil)
	require.NoError(t, err)
	left, err := action.ScrollBy(-1, true, &action.Point{X: 40, Y: 50})
	require.NoError(t, err)

	t.Run("direct up", func(t *testing.T) {
		h, driver, _ := newTestHumanoid(t, false)
		_, err := h.Perform(context.Background(), up)
		require.NoError(t, err)
		wheels := driver.mouseOfType(MouseWheel)
		require.Len(t, wheels, 1)
		assert.Equal(t, -200.0, wheels[0].DeltaY)
		assert.Zero(t, wheels[0].DeltaX)
	})

	t.Run("notched up", func(t *testing.T) {
		h, driver, rec := newTestHumanoid(t, true)
		_, err := h.Perform(context.Background(), up)
		require.NoError(t, err)
		wheels := driver.mouseOfType(MouseWheel)
		require.Len(t, wheels, 2)
		for _, w := range wheels {
			assert.Equal(t, -100.0, w.DeltaY)
		}
		assert.Len(t, rec.sleeps, 1, "one gap between notches")
	})

	t.Run("left at point", func(t *testing.T) {
		h, driver, _ := newTestHumanoid(t, false)
		_, err := h.Perform(context.Background(), left)
		require.NoError(t, err)
		require.Len(t, driver.mouse, 2)
		assert.Equal(t, MouseMove, driver.mouse[0].Type)
		assert.Equal(t, MouseEventData{Type: MouseWheel, X: 40, Y: 50, Button: ButtonNone, DeltaX: -100}, driver.mouse[1])
	})
}

func TestPerform_Wait(t *testing.T) {
	h, driver, rec := newTestHumanoid(t, true)
	a, err := action.Wait(2 * time.Second)
	require.NoError(t, err)

	outcome, err := h.Perform(context.Background(), a)

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.sleeps)
	assert.Empty(t, driver.mouse)
}

// =============================================================================
// Outcomes and Cancellation
// =============================================================================

func TestPerform_DriverErrorIsFailedOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	driver := &mockDriver{failOnCall: 1, returnErr: errors.New("no target")}
	h := New(driver, testConfig(false), zap.New(core), WithSleep((&sleepRecorder{}).Sleep))

	outcome, err := h.Perform(context.Background(), mustClick(t, 5, 5))

	require.NoError(t, err)
	assert.Equal(t, schemas.ExecutionFailed, outcome.Status)
	assert.Equal(t, "no target", outcome.Reason)
	assert.Equal(t, 1, logs.FilterMessage("Action failed.").Len())
}

func TestPerform_CancellationIsReturned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h, _, _ := newTestHumanoid(t, true, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	a, err := action.Wait(time.Minute)
	require.NoError(t, err)
	_, err = h.Perform(ctx, a)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPerform_TerminalActionsAreNoOps(t *testing.T) {
	h, driver, _ := newTestHumanoid(t, true)

	outcome, err := h.Perform(context.Background(), action.Done("finished"))

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Empty(t, driver.mouse)
	assert.Empty(t, driver.keys)
}

func TestPerform_MeasuresDuration(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h, _, _ := newTestHumanoid(t, false, WithClock(func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}))

	outcome, err := h.Perform(context.Background(), mustClick(t, 1, 1))

	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, outcome.Duration)
}
