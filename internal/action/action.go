// File: internal/action/action.go
package action

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind identifies an executable operation.
type Kind string

const (
	KindClick       Kind = "click"
	KindDoubleClick Kind = "double_click"
	KindRightClick  Kind = "right_click"
	KindMove        Kind = "move"
	KindDrag        Kind = "drag"
	KindType        Kind = "type"
	KindKey         Kind = "key"
	KindHotkey      Kind = "hotkey"
	KindScroll      Kind = "scroll"
	KindWait        Kind = "wait"
	KindDone        Kind = "done" // Terminal: task completed.
	KindFail        Kind = "fail" // Terminal: task cannot be completed.
)

// Kinds lists every supported kind in the order they are presented to the model.
var Kinds = []Kind{
	KindClick, KindDoubleClick, KindRightClick, KindMove, KindDrag,
	KindType, KindKey, KindHotkey, KindScroll, KindWait, KindDone, KindFail,
}

// IsTerminal reports whether the kind ends a run.
func (k Kind) IsTerminal() bool {
	return k == KindDone || k == KindFail
}

// HasPosition reports whether actions of this kind carry screen coordinates.
func (k Kind) HasPosition() bool {
	switch k {
	case KindClick, KindDoubleClick, KindRightClick, KindMove, KindDrag:
		return true
	}
	return false
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// MouseButton selects the pointer button used by click actions.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Point is a pixel position in screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Rect is a closed-open pixel rectangle: Min is inside, Max is not.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// NewRect builds a rectangle from an origin and a size.
func NewRect(x, y, width, height int) Rect {
	return Rect{Min: Point{X: x, Y: y}, Max: Point{X: x + width, Y: y + height}}
}

func (r Rect) Width() int  { return r.Max.X - r.Min.X }
func (r Rect) Height() int { return r.Max.Y - r.Min.Y }

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Inset shrinks the rectangle by n pixels on every side.
func (r Rect) Inset(n int) Rect {
	if n <= 0 {
		return r
	}
	return Rect{
		Min: Point{X: r.Min.X + n, Y: r.Min.Y + n},
		Max: Point{X: r.Max.X - n, Y: r.Max.Y - n},
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d)-[%d,%d)", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Action is a fully validated command. Values are built through the
// constructors below and are never partially populated: only the fields
// relevant to Kind are set.
type Action struct {
	Kind Kind `json:"kind"`

	// Point is the target for pointer actions and the drag origin.
	Point Point `json:"point,omitempty"`
	// End is the drag destination.
	End Point `json:"end,omitempty"`
	// HasPoint is set when Point carries a position. Scroll may omit it.
	HasPoint bool `json:"has_point,omitempty"`

	Button   MouseButton   `json:"button,omitempty"`
	Text     string        `json:"text,omitempty"`
	Keys     []string      `json:"keys,omitempty"`
	Scroll   int           `json:"scroll,omitempty"`
	Horiz    bool          `json:"horizontal,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Message  string        `json:"message,omitempty"`

	// Thought is the model's reasoning attached to the directive, if any.
	Thought string `json:"thought,omitempty"`
}

// Sentinel construction errors.
var (
	ErrEmptyText      = errors.New("text must not be empty")
	ErrNoKeys         = errors.New("at least one key is required")
	ErrZeroScroll     = errors.New("scroll amount must not be zero")
	ErrNegativeDelay  = errors.New("duration must be non-negative")
	ErrUnknownButton  = errors.New("unknown mouse button")
	ErrUnknownKeyName = errors.New("unknown key name")
)

func pointerAction(kind Kind, p Point) Action {
	return Action{Kind: kind, Point: p, HasPoint: true}
}

// Click returns a single click with the given button.
func Click(p Point, button MouseButton) (Action, error) {
	switch button {
	case "":
		button = ButtonLeft
	case ButtonLeft, ButtonRight, ButtonMiddle:
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownButton, button)
	}
	a := pointerAction(KindClick, p)
	a.Button = button
	return a, nil
}

// DoubleClick returns a left double click.
func DoubleClick(p Point) Action {
	a := pointerAction(KindDoubleClick, p)
	a.Button = ButtonLeft
	return a
}

// RightClick returns a right button click.
func RightClick(p Point) Action {
	a := pointerAction(KindRightClick, p)
	a.Button = ButtonRight
	return a
}

// Move positions the pointer without clicking.
func Move(p Point, d time.Duration) (Action, error) {
	if d < 0 {
		return Action{}, ErrNegativeDelay
	}
	a := pointerAction(KindMove, p)
	a.Duration = d
	return a, nil
}

// Drag presses the left button at from and releases it at to.
func Drag(from, to Point, d time.Duration) (Action, error) {
	if d < 0 {
		return Action{}, ErrNegativeDelay
	}
	a := pointerAction(KindDrag, from)
	a.End = to
	a.Button = ButtonLeft
	a.Duration = d
	return a, nil
}

// TypeText types text into the focused element. interval is the delay
// between keystrokes.
func TypeText(text string, interval time.Duration) (Action, error) {
	if text == "" {
		return Action{}, ErrEmptyText
	}
	if interval < 0 {
		return Action{}, ErrNegativeDelay
	}
	return Action{Kind: KindType, Text: text, Duration: interval}, nil
}

// KeyPress presses and releases a single named key.
func KeyPress(key string) (Action, error) {
	name, ok := CanonicalKey(key)
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownKeyName, key)
	}
	return Action{Kind: KindKey, Keys: []string{name}}, nil
}

// Hotkey presses keys in order and releases them in reverse.
func Hotkey(keys ...string) (Action, error) {
	if len(keys) == 0 {
		return Action{}, ErrNoKeys
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name, ok := CanonicalKey(k)
		if !ok {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownKeyName, k)
		}
		names = append(names, name)
	}
	return Action{Kind: KindHotkey, Keys: names}, nil
}

// ScrollBy scrolls by amount notches. Positive values scroll up (or right
// when horizontal). at is optional.
func ScrollBy(amount int, horizontal bool, at *Point) (Action, error) {
	if amount == 0 {
		return Action{}, ErrZeroScroll
	}
	a := Action{Kind: KindScroll, Scroll: amount, Horiz: horizontal}
	if at != nil {
		a.Point = *at
		a.HasPoint = true
	}
	return a, nil
}

// Wait pauses for d.
func Wait(d time.Duration) (Action, error) {
	if d < 0 {
		return Action{}, ErrNegativeDelay
	}
	return Action{Kind: KindWait, Duration: d}, nil
}

// Done marks the task as completed.
func Done(message string) Action {
	return Action{Kind: KindDone, Message: strings.TrimSpace(message)}
}

// Fail marks the task as impossible.
func Fail(reason string) Action {
	return Action{Kind: KindFail, Message: strings.TrimSpace(reason)}
}

// Points returns every screen coordinate the action touches.
func (a Action) Points() []Point {
	switch {
	case a.Kind == KindDrag:
		return []Point{a.Point, a.End}
	case a.HasPoint:
		return []Point{a.Point}
	}
	return nil
}

// Summary renders a one-line description for logs and transcripts.
func (a Action) Summary() string {
	switch a.Kind {
	case KindClick:
		if a.Button != ButtonLeft {
			return fmt.Sprintf("click %s %s", a.Button, a.Point)
		}
		return fmt.Sprintf("click %s", a.Point)
	case KindDoubleClick, KindRightClick:
		return fmt.Sprintf("%s %s", a.Kind, a.Point)
	case KindMove:
		return fmt.Sprintf("move to %s", a.Point)
	case KindDrag:
		return fmt.Sprintf("drag %s -> %s", a.Point, a.End)
	case KindType:
		return fmt.Sprintf("type %q", truncate(a.Text, 40))
	case KindKey:
		return fmt.Sprintf("key %s", a.Keys[0])
	case KindHotkey:
		return fmt.Sprintf("hotkey %s", strings.Join(a.Keys, "+"))
	case KindScroll:
		dir := directionName(a.Scroll, a.Horiz)
		n := a.Scroll
		if n < 0 {
			n = -n
		}
		if a.HasPoint {
			return fmt.Sprintf("scroll %s %d at %s", dir, n, a.Point)
		}
		return fmt.Sprintf("scroll %s %d", dir, n)
	case KindWait:
		return fmt.Sprintf("wait %s", a.Duration)
	case KindDone:
		return fmt.Sprintf("done: %s", a.Message)
	case KindFail:
		return fmt.Sprintf("fail: %s", a.Message)
	}
	return string(a.Kind)
}

func directionName(amount int, horizontal bool) string {
	switch {
	case horizontal && amount > 0:
		return "right"
	case horizontal:
		return "left"
	case amount > 0:
		return "up"
	default:
		return "down"
	}
}

func secondsToDuration(s float64) (time.Duration, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, errors.New("duration must be finite")
	}
	if s < 0 {
		return 0, ErrNegativeDelay
	}
	return time.Duration(s * float64(time.Second)), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
