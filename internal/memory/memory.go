// File: internal/memory/memory.go
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
)

// Kind classifies a memory entry.
type Kind string

const (
	KindTask        Kind = "task"        // The task description. Pinned.
	KindObservation Kind = "observation" // A screenshot reference plus context.
	KindReasoning   Kind = "reasoning"   // A raw model reply.
	KindFeedback    Kind = "feedback"    // Corrective notes, denials, execution errors.
	KindAction      Kind = "action"      // An executed action and its outcome.
)

// Entry is one immutable record of the run. Seq and Tokens are assigned on
// Append.
type Entry struct {
	Seq          uint64                    `json:"seq"`
	Kind         Kind                      `json:"kind"`
	Step         int                       `json:"step"`
	Text         string                    `json:"text,omitempty"`
	ScreenshotID string                    `json:"screenshot_id,omitempty"`
	Action       *action.Action            `json:"action,omitempty"`
	Outcome      *schemas.ExecutionOutcome `json:"outcome,omitempty"`
	Pinned       bool                      `json:"pinned,omitempty"`
	Tokens       int                       `json:"tokens"`
	At           time.Time                 `json:"at"`
}

// Content renders the entry as prompt text.
func (e Entry) Content() string {
	switch e.Kind {
	case KindTask:
		return "Task: " + e.Text
	case KindObservation:
		if e.Text == "" {
			return fmt.Sprintf("Observation (step %d): screenshot %s", e.Step, e.ScreenshotID)
		}
		return fmt.Sprintf("Observation (step %d): %s", e.Step, e.Text)
	case KindAction:
		var b strings.Builder
		fmt.Fprintf(&b, "Executed (step %d): ", e.Step)
		if e.Action != nil {
			b.WriteString(e.Action.Summary())
		}
		if e.Outcome != nil {
			if e.Outcome.Succeeded() {
				b.WriteString(" -> succeeded")
			} else {
				fmt.Fprintf(&b, " -> failed: %s", e.Outcome.Reason)
			}
		}
		return b.String()
	case KindFeedback:
		return "Feedback: " + e.Text
	}
	return e.Text
}

// Config bounds a Memory.
type Config struct {
	// MaxEntries is the retained entry bound, pinned entries included.
	MaxEntries int
	// MinWindow is the number of most recent entries never evicted.
	MinWindow int
	// MaxTokens is an optional token budget; zero disables it.
	MaxTokens int
	// Counter overrides the token counter. Defaults to CountTokens.
	Counter TokenCounter
}

// Memory is an append-only, bounded history. The first entry after
// construction or Reset is pinned, as is any entry appended with Pinned set.
// When a bound is exceeded the oldest non-pinned entries are evicted, but the
// most recent MinWindow entries are always kept. It is safe for concurrent use.
type Memory struct {
	cfg Config

	mu     sync.RWMutex
	pinned []Entry
	// recent[head:] holds the live non-pinned entries, oldest first.
	recent  []Entry
	head    int
	seq     uint64
	tokens  int
	evicted int
}

// New creates an empty memory.
func New(cfg Config) *Memory {
	if cfg.Counter == nil && cfg.MaxTokens > 0 {
		cfg.Counter = CountTokens
	}
	return &Memory{cfg: cfg}
}

// Append stores e and returns the stored copy.
func (m *Memory) Append(e Entry) Entry {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if m.cfg.Counter != nil {
		e.Tokens = m.cfg.Counter(e.Content())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seq == 0 {
		e.Pinned = true
	}
	m.seq++
	e.Seq = m.seq
	m.tokens += e.Tokens

	if e.Pinned {
		m.pinned = append(m.pinned, e)
	} else {
		m.recent = append(m.recent, e)
	}
	m.evict()
	return e
}

func (m *Memory) live() int { return len(m.recent) - m.head }

func (m *Memory) overBudget() bool {
	if m.cfg.MaxEntries > 0 && len(m.pinned)+m.live() > m.cfg.MaxEntries {
		return true
	}
	return m.cfg.MaxTokens > 0 && m.tokens > m.cfg.MaxTokens
}

// evict drops the oldest non-pinned entries while over budget. Callers hold m.mu.
func (m *Memory) evict() {
	for m.overBudget() && m.live() > m.cfg.MinWindow {
		m.tokens -= m.recent[m.head].Tokens
		m.recent[m.head] = Entry{}
		m.head++
		m.evicted++
	}
	// Compact once the dead prefix dominates so the backing array stays bounded.
	if m.head > 0 && m.head*2 >= len(m.recent) {
		n := copy(m.recent, m.recent[m.head:])
		for i := n; i < len(m.recent); i++ {
			m.recent[i] = Entry{}
		}
		m.recent = m.recent[:n]
		m.head = 0
	}
}

// Snapshot returns the retained entries in insertion order. The returned
// slice is a copy.
func (m *Memory) Snapshot() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.pinned)+m.live())
	p, r := 0, m.head
	for p < len(m.pinned) || r < len(m.recent) {
		if r >= len(m.recent) || (p < len(m.pinned) && m.pinned[p].Seq < m.recent[r].Seq) {
			out = append(out, m.pinned[p])
			p++
		} else {
			out = append(out, m.recent[r])
			r++
		}
	}
	return out
}

// Reset discards every entry.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned = nil
	m.recent = nil
	m.head = 0
	m.seq = 0
	m.tokens = 0
	m.evicted = 0
}

// Len is the number of retained entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pinned) + m.live()
}

// Tokens is the token total of retained entries.
func (m *Memory) Tokens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens
}

// Evicted is the number of entries dropped since the last Reset.
func (m *Memory) Evicted() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evicted
}
