package humanoid

import (
	"math"
	"time"
)

const (
	// Assumed target width (W) in pixels for Fitts's law.
	defaultTargetWidth = 30.0
	// Interval between dispatched move events along a path.
	moveInterval = 10 * time.Millisecond
	maxPathSteps = 200
)

// easeInOutCubic provides a smooth acceleration and deceleration profile.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// fittsDuration is the movement time MT = a + b*log2(1 + D/W), with a and b
// in milliseconds.
func fittsDuration(a, b, distance, width float64) time.Duration {
	if width <= 0 {
		width = defaultTargetWidth
	}
	mt := a + b*math.Log2(1.0+distance/width)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt * float64(time.Millisecond))
}

// cubicBezier evaluates the curve at t.
func cubicBezier(p0, p1, p2, p3 Vector2D, t float64) Vector2D {
	omt := 1.0 - t
	omt2 := omt * omt
	t2 := t * t
	return p0.Mul(omt2 * omt).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t2 * t))
}

// movementDuration applies Fitts's law with +/- 10% variation.
func (h *Humanoid) movementDuration(distance float64) time.Duration {
	base := fittsDuration(h.cfg.FittsA, h.cfg.FittsB, distance, defaultTargetWidth)
	h.mu.Lock()
	f := 0.9 + h.rng.Float64()*0.2
	h.mu.Unlock()
	return time.Duration(float64(base) * f)
}

// path samples a curved trajectory from start to end at steps+1 eased
// points. The first point is start and the last is exactly end.
func (h *Humanoid) path(start, end Vector2D, steps int) []Vector2D {
	if steps < 1 {
		steps = 1
	}
	span := end.Sub(start)
	dist := span.Mag()
	normal := span.Normalize().Perp()

	// Control points at 1/3 and 2/3 pushed sideways by up to Jitter*dist.
	h.mu.Lock()
	d1 := (h.rng.Float64()*2 - 1) * h.cfg.Jitter * dist
	d2 := (h.rng.Float64()*2 - 1) * h.cfg.Jitter * dist
	h.mu.Unlock()
	p1 := start.Add(span.Mul(1.0 / 3.0)).Add(normal.Mul(d1))
	p2 := start.Add(span.Mul(2.0 / 3.0)).Add(normal.Mul(d2))

	points := make([]Vector2D, steps+1)
	for i := 0; i <= steps; i++ {
		t := easeInOutCubic(float64(i) / float64(steps))
		points[i] = cubicBezier(start, p1, p2, end, t)
	}
	points[0], points[steps] = start, end
	return points
}
