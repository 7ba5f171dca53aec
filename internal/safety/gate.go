// File: internal/safety/gate.go
package safety

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/config"
)

// RateWindow is the trailing window used for rate limiting.
const RateWindow = time.Minute

// Reason is the machine-readable cause of a denial.
type Reason string

const (
	ReasonRateLimited Reason = "rate-limited"
	ReasonOutOfBounds Reason = "out-of-bounds"
	ReasonDestructive Reason = "destructive-action-blocked"
	ReasonCooldown    Reason = "cooldown-active"
)

// Verdict is the gate's judgment on a candidate action.
type Verdict struct {
	Approved bool
	Reason   Reason
	Detail   string
	// RetryAfter hints how long until a time-based denial clears.
	RetryAfter time.Duration
}

func approve() Verdict { return Verdict{Approved: true} }

func deny(reason Reason, detail string, retryAfter time.Duration) Verdict {
	return Verdict{Reason: reason, Detail: detail, RetryAfter: retryAfter}
}

func (v Verdict) String() string {
	if v.Approved {
		return "approved"
	}
	if v.Detail == "" {
		return "denied: " + string(v.Reason)
	}
	return fmt.Sprintf("denied: %s (%s)", v.Reason, v.Detail)
}

// Policy is the resolved form of config.SafetyConfig.
type Policy struct {
	MaxActionsPerMinute int
	MinActionDelay      time.Duration
	DeniedKinds         map[action.Kind]struct{}
	// DeniedHotkeys holds canonical key-name sets.
	DeniedHotkeys [][]string
	Bounds        action.Rect
}

// PolicyFromConfig resolves and validates a safety configuration.
func PolicyFromConfig(cfg config.SafetyConfig) (Policy, error) {
	p := Policy{
		MaxActionsPerMinute: cfg.MaxActionsPerMinute,
		MinActionDelay:      cfg.MinActionDelay,
		DeniedKinds:         make(map[action.Kind]struct{}, len(cfg.DeniedActions)),
		Bounds: action.NewRect(cfg.ScreenBounds.X, cfg.ScreenBounds.Y,
			cfg.ScreenBounds.Width, cfg.ScreenBounds.Height).Inset(cfg.EdgeMargin),
	}
	for _, name := range cfg.DeniedActions {
		k := action.Kind(strings.ToLower(strings.TrimSpace(name)))
		if !k.Valid() {
			return Policy{}, fmt.Errorf("denied action %q is not a known action kind", name)
		}
		p.DeniedKinds[k] = struct{}{}
	}
	for _, combo := range cfg.DeniedHotkeys {
		keys := make([]string, 0, len(combo))
		for _, key := range combo {
			canonical, ok := action.CanonicalKey(key)
			if !ok {
				return Policy{}, fmt.Errorf("denied hotkey %v: unknown key %q", combo, key)
			}
			keys = append(keys, canonical)
		}
		p.DeniedHotkeys = append(p.DeniedHotkeys, keys)
	}
	return p, nil
}

// Gate approves or vetoes actions against a policy and the history of
// executed actions. Evaluate is read-only; only Record changes state.
type Gate struct {
	policy Policy
	logger *zap.Logger

	mu sync.Mutex
	// executed holds execution timestamps in ascending order.
	executed []time.Time
	last     time.Time
	hasLast  bool
}

// NewGate creates a gate with empty history.
func NewGate(policy Policy, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{policy: policy, logger: logger.Named("safety")}
}

// Evaluate judges a candidate action at time now. Checks run in order:
// denylist, bounds, cooldown, rate limit.
func (g *Gate) Evaluate(a action.Action, now time.Time) Verdict {
	if v, denied := g.checkDenylist(a); denied {
		return v
	}
	for _, pt := range a.Points() {
		if !g.policy.Bounds.Contains(pt) {
			return deny(ReasonOutOfBounds, fmt.Sprintf("%s outside %s", pt, g.policy.Bounds), 0)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasLast {
		if elapsed := now.Sub(g.last); elapsed < g.policy.MinActionDelay {
			wait := g.policy.MinActionDelay - elapsed
			return deny(ReasonCooldown, fmt.Sprintf("last action %s ago", elapsed), wait)
		}
	}

	if count, oldest := g.inWindow(now); count >= g.policy.MaxActionsPerMinute {
		detail := fmt.Sprintf("%d actions in the last %s", count, RateWindow)
		return deny(ReasonRateLimited, detail, oldest.Add(RateWindow).Sub(now))
	}
	return approve()
}

func (g *Gate) checkDenylist(a action.Action) (Verdict, bool) {
	if _, ok := g.policy.DeniedKinds[a.Kind]; ok {
		return deny(ReasonDestructive, fmt.Sprintf("%s actions are disabled", a.Kind), 0), true
	}
	if a.Kind != action.KindHotkey && a.Kind != action.KindKey {
		return Verdict{}, false
	}
	pressed := make(map[string]struct{}, len(a.Keys))
	for _, k := range a.Keys {
		pressed[k] = struct{}{}
	}
	for _, combo := range g.policy.DeniedHotkeys {
		if containsAll(pressed, combo) {
			return deny(ReasonDestructive, fmt.Sprintf("shortcut %s is blocked", strings.Join(combo, "+")), 0), true
		}
	}
	return Verdict{}, false
}

func containsAll(set map[string]struct{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return len(keys) > 0
}

// inWindow counts executions with now-t < RateWindow and returns the oldest
// of them. Callers hold g.mu.
func (g *Gate) inWindow(now time.Time) (int, time.Time) {
	cutoff := now.Add(-RateWindow)
	i := sort.Search(len(g.executed), func(i int) bool {
		return g.executed[i].After(cutoff)
	})
	n := len(g.executed) - i
	if n == 0 {
		return 0, time.Time{}
	}
	return n, g.executed[i]
}

// Record notes that a was executed at now. Call it only after the backend
// reports success.
func (g *Gate) Record(a action.Action, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Drop entries that can no longer affect any future evaluation.
	cutoff := now.Add(-RateWindow)
	i := sort.Search(len(g.executed), func(i int) bool {
		return g.executed[i].After(cutoff)
	})
	if i > 0 {
		g.executed = append(g.executed[:0], g.executed[i:]...)
	}

	g.executed = append(g.executed, now)
	g.last = now
	g.hasLast = true

	g.logger.Debug("Recorded execution",
		zap.String("kind", string(a.Kind)),
		zap.Int("in_window", len(g.executed)))
}

// Reset clears all execution history.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.executed = nil
	g.last = time.Time{}
	g.hasLast = false
}

// Stats is a read-only view of the gate's accounting.
type Stats struct {
	InWindow       int
	LastExecutedAt time.Time
}

// Stats reports the number of executions in the trailing window at now.
func (g *Gate) Stats(now time.Time) Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, _ := g.inWindow(now)
	return Stats{InWindow: n, LastExecutedAt: g.last}
}
