// Filename: internal/humanoid/trajectory_test.go
package humanoid

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floatAlmostEqual checks if two float64 values are within a small tolerance.
func floatAlmostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestEaseInOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, easeInOutCubic(0))
	assert.Equal(t, 0.5, easeInOutCubic(0.5))
	assert.Equal(t, 1.0, easeInOutCubic(1))

	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := easeInOutCubic(float64(i) / 100)
		assert.GreaterOrEqual(t, v, prev, "easing must be monotonic")
		prev = v
	}
	// Slow at the ends, fast in the middle.
	assert.Less(t, easeInOutCubic(0.1), 0.1)
	assert.Greater(t, easeInOutCubic(0.9), 0.9)
}

func TestFittsDuration(t *testing.T) {
	assert.Equal(t, 80*time.Millisecond, fittsDuration(80, 120, 0, 30))
	assert.Equal(t, 200*time.Millisecond, fittsDuration(80, 120, 30, 30))
	assert.Equal(t, 320*time.Millisecond, fittsDuration(80, 120, 90, 30))
	assert.Equal(t, 200*time.Millisecond, fittsDuration(80, 120, 30, 0), "non-positive width uses the default")
	assert.Zero(t, fittsDuration(-500, 0, 10, 30))
}

func TestCubicBezierEndpoints(t *testing.T) {
	p0, p1, p2, p3 := Vector2D{0, 0}, Vector2D{10, 50}, Vector2D{90, -50}, Vector2D{100, 0}
	assert.Equal(t, p0, cubicBezier(p0, p1, p2, p3, 0))
	assert.Equal(t, p3, cubicBezier(p0, p1, p2, p3, 1))

	mid := cubicBezier(p0, p1, p2, p3, 0.5)
	assert.True(t, floatAlmostEqual(mid.X, 50, 1e-9))
	assert.True(t, floatAlmostEqual(mid.Y, 0, 1e-9))
}

func TestPath(t *testing.T) {
	h, _, _ := newTestHumanoid(t, true)
	start, end := Vector2D{X: 10, Y: 10}, Vector2D{X: 410, Y: 310}

	points := h.path(start, end, 50)

	require.Len(t, points, 51)
	assert.Equal(t, start, points[0])
	assert.Equal(t, end, points[50])

	// The jitter bound keeps every point near the straight segment.
	dist := start.Dist(end)
	dir := end.Sub(start).Normalize()
	for _, p := range points {
		rel := p.Sub(start)
		along := rel.X*dir.X + rel.Y*dir.Y
		off := math.Abs(rel.X*dir.Perp().X + rel.Y*dir.Perp().Y)
		assert.LessOrEqual(t, off, 0.1*dist+1e-6)
		assert.GreaterOrEqual(t, along, -0.1*dist)
	}
}

func TestPath_ZeroLength(t *testing.T) {
	h, _, _ := newTestHumanoid(t, true)
	p := Vector2D{X: 5, Y: 5}
	points := h.path(p, p, 3)
	for _, q := range points {
		assert.Equal(t, p, q)
	}
}

func TestMovementDurationVariation(t *testing.T) {
	h, _, _ := newTestHumanoid(t, true)
	base := fittsDuration(80, 120, 300, defaultTargetWidth)
	for i := 0; i < 20; i++ {
		d := h.movementDuration(300)
		assert.GreaterOrEqual(t, d, time.Duration(float64(base)*0.9)-time.Microsecond)
		assert.LessOrEqual(t, d, time.Duration(float64(base)*1.1)+time.Microsecond)
	}
}

func TestVectorOps(t *testing.T) {
	v := Vector2D{X: 3, Y: 4}
	assert.Equal(t, 5.0, v.Mag())
	assert.Equal(t, Vector2D{X: -4, Y: 3}, v.Perp())
	assert.True(t, floatAlmostEqual(v.Normalize().Mag(), 1, 1e-12))
	assert.Equal(t, Vector2D{}, Vector2D{}.Normalize())
	assert.Equal(t, 5.0, Vector2D{}.Dist(v))
}
