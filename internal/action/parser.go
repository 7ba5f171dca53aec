// File: internal/action/parser.go
package action

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	json "github.com/json-iterator/go"
)

// DefaultMaxWait caps wait actions when Options.MaxWait is unset.
const DefaultMaxWait = 30 * time.Second

// kindAliases are alternative spellings models commonly produce.
var kindAliases = map[string]Kind{
	"press":       KindKey,
	"key_press":   KindKey,
	"keypress":    KindKey,
	"type_text":   KindType,
	"mouse_move":  KindMove,
	"doubleclick": KindDoubleClick,
	"rightclick":  KindRightClick,
	"finish":      KindDone,
}

// Options fixes the geometry an action is validated against.
type Options struct {
	// Bounds is the screen rectangle every coordinate must fall inside.
	Bounds Rect
	// GridEnabled allows cell coordinates. GridStep is the cell size in pixels.
	GridEnabled bool
	GridStep    int
	// MaxWait caps wait durations.
	MaxWait time.Duration
}

// ParseError describes why a model reply did not yield an action. It carries
// the raw reply so the caller can build a corrective prompt.
type ParseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse failure: %s: %v", e.Reason, e.Err)
	}
	return "parse failure: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseResult is either a well-formed Action or a ParseError.
type ParseResult struct {
	Action Action
	Err    *ParseError
}

// OK reports whether parsing produced an action.
func (r ParseResult) OK() bool { return r.Err == nil }

// Parser converts free-form model replies into validated actions.
type Parser struct {
	opts Options
	grid Grid
}

// NewParser creates a parser for the given geometry.
func NewParser(opts Options) *Parser {
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	return &Parser{
		opts: opts,
		grid: Grid{Step: opts.GridStep, Bounds: opts.Bounds},
	}
}

// directive is the wire shape of an action block.
type directive struct {
	Thought string                 `json:"thought"`
	Action  string                 `json:"action"`
	Params  map[string]interface{} `json:"params"`
}

// Parse extracts exactly one directive from raw and validates it. It never
// panics on malformed input.
func (p *Parser) Parse(raw string) (result ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(raw, "internal parser error", fmt.Errorf("%v", r))
		}
	}()

	blocks := extractDirectives(raw)
	switch len(blocks) {
	case 0:
		return failure(raw, "no action directive found; reply with one JSON object containing \"action\"", nil)
	case 1:
	default:
		return failure(raw, fmt.Sprintf("found %d action directives; reply with exactly one", len(blocks)), nil)
	}

	d, err := decodeDirective(blocks[0])
	if err != nil {
		return failure(raw, "malformed action directive", err)
	}

	a, err := p.build(d)
	if err != nil {
		return failure(raw, fmt.Sprintf("invalid %q action", d.Action), err)
	}
	a.Thought = strings.TrimSpace(d.Thought)
	return ParseResult{Action: a}
}

func failure(raw, reason string, err error) ParseResult {
	return ParseResult{Err: &ParseError{Raw: raw, Reason: reason, Err: err}}
}

// extractDirectives returns every balanced top-level JSON object in s that
// carries an "action" key. Objects nested inside another object are not
// considered on their own.
func extractDirectives(s string) [][]byte {
	var out [][]byte
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			continue
		}
		span := []byte(s[i : end+1])
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(span, &probe); err != nil {
			continue
		}
		if _, ok := probe["action"]; ok {
			out = append(out, span)
		}
		i = end
	}
	return out
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// Braces inside JSON strings are ignored.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decodeDirective(block []byte) (directive, error) {
	var d directive
	if err := json.Unmarshal(block, &d); err != nil {
		return d, err
	}
	if d.Params == nil {
		// Tolerate parameters written next to "action" instead of under "params".
		var flat map[string]interface{}
		if err := json.Unmarshal(block, &flat); err != nil {
			return d, err
		}
		delete(flat, "action")
		delete(flat, "thought")
		delete(flat, "params")
		d.Params = flat
	}
	return d, nil
}

func resolveKind(name string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := kindAliases[k]; ok {
		return alias, nil
	}
	if Kind(k).Valid() {
		return Kind(k), nil
	}
	return "", fmt.Errorf("unknown action %q", name)
}

func (p *Parser) build(d directive) (Action, error) {
	kind, err := resolveKind(d.Action)
	if err != nil {
		return Action{}, err
	}
	params := paramSet(d.Params)

	switch kind {
	case KindClick:
		pt, err := p.point(params, "")
		if err != nil {
			return Action{}, err
		}
		button, err := params.optString("button")
		if err != nil {
			return Action{}, err
		}
		return Click(pt, MouseButton(strings.ToLower(button)))

	case KindDoubleClick, KindRightClick:
		pt, err := p.point(params, "")
		if err != nil {
			return Action{}, err
		}
		if kind == KindDoubleClick {
			return DoubleClick(pt), nil
		}
		return RightClick(pt), nil

	case KindMove:
		pt, err := p.point(params, "")
		if err != nil {
			return Action{}, err
		}
		dur, err := params.optDuration("duration")
		if err != nil {
			return Action{}, err
		}
		return Move(pt, dur)

	case KindDrag:
		from, err := p.point(params, "start_")
		if err != nil {
			return Action{}, fmt.Errorf("start: %w", err)
		}
		to, err := p.point(params, "end_")
		if err != nil {
			return Action{}, fmt.Errorf("end: %w", err)
		}
		dur, err := params.optDuration("duration")
		if err != nil {
			return Action{}, err
		}
		return Drag(from, to, dur)

	case KindType:
		text, err := params.optString("text")
		if err != nil {
			return Action{}, err
		}
		interval, err := params.optDuration("interval")
		if err != nil {
			return Action{}, err
		}
		return TypeText(text, interval)

	case KindKey:
		key, err := params.optString("key")
		if err != nil {
			return Action{}, err
		}
		if key == "" {
			return Action{}, errors.New("missing \"key\"")
		}
		return KeyPress(key)

	case KindHotkey:
		keys, err := params.stringList("keys")
		if err != nil {
			return Action{}, err
		}
		return Hotkey(keys...)

	case KindScroll:
		return p.scroll(params)

	case KindWait:
		v, ok := params["seconds"]
		if !ok {
			return Action{}, errors.New("missing \"seconds\"")
		}
		secs, err := asFloat("seconds", v)
		if err != nil {
			return Action{}, err
		}
		dur, err := secondsToDuration(secs)
		if err != nil {
			return Action{}, err
		}
		if dur > p.opts.MaxWait {
			return Action{}, fmt.Errorf("wait of %s exceeds maximum %s", dur, p.opts.MaxWait)
		}
		return Wait(dur)

	case KindDone:
		msg := params.firstString("result", "message")
		if v, ok := params["success"]; ok {
			success, isBool := v.(bool)
			if !isBool {
				return Action{}, errors.New("\"success\" must be a boolean")
			}
			if !success {
				return Fail(msg), nil
			}
		}
		return Done(msg), nil

	case KindFail:
		return Fail(params.firstString("reason", "message", "result")), nil
	}
	return Action{}, fmt.Errorf("unsupported action %q", kind)
}

func (p *Parser) scroll(params paramSet) (Action, error) {
	dirName, err := params.optString("direction")
	if err != nil {
		return Action{}, err
	}

	amount := 0
	if v, ok := params["amount"]; ok {
		if amount, err = asInt("amount", v); err != nil {
			return Action{}, err
		}
	}

	horizontal := false
	if dirName != "" {
		if _, ok := params["amount"]; !ok {
			amount = 3
		}
		if amount <= 0 {
			return Action{}, errors.New("\"amount\" must be positive when \"direction\" is given")
		}
		switch strings.ToLower(dirName) {
		case "up":
		case "down":
			amount = -amount
		case "right":
			horizontal = true
		case "left":
			horizontal = true
			amount = -amount
		default:
			return Action{}, fmt.Errorf("unknown scroll direction %q", dirName)
		}
	}

	var at *Point
	if params.hasAny("x", "y", "col", "row", "cell") {
		pt, err := p.point(params, "")
		if err != nil {
			return Action{}, err
		}
		at = &pt
	}
	return ScrollBy(amount, horizontal, at)
}

// point reads a position written either in pixels (x, y) or, with the grid
// active, in cells (col, row with optional offsets, or a cell label).
func (p *Parser) point(params paramSet, prefix string) (Point, error) {
	var pt Point
	switch {
	case params.hasAny(prefix+"x", prefix+"y"):
		x, err := params.coord(prefix + "x")
		if err != nil {
			return Point{}, err
		}
		y, err := params.coord(prefix + "y")
		if err != nil {
			return Point{}, err
		}
		pt = Point{X: x, Y: y}

	case params.hasAny(prefix+"col", prefix+"row", prefix+"cell"):
		if !p.opts.GridEnabled || p.opts.GridStep <= 0 {
			return Point{}, ErrGridDisabled
		}
		var col, row int
		var err error
		if v, ok := params[prefix+"cell"]; ok {
			label, err := asInt(prefix+"cell", v)
			if err != nil {
				return Point{}, err
			}
			if col, row, err = p.grid.LabelCell(label); err != nil {
				return Point{}, err
			}
		} else {
			if col, err = params.integer(prefix + "col"); err != nil {
				return Point{}, err
			}
			if row, err = params.integer(prefix + "row"); err != nil {
				return Point{}, err
			}
		}
		offX, err := params.optInt(prefix+"offset_x", p.opts.GridStep/2)
		if err != nil {
			return Point{}, err
		}
		offY, err := params.optInt(prefix+"offset_y", p.opts.GridStep/2)
		if err != nil {
			return Point{}, err
		}
		if pt, err = p.grid.Point(col, row, offX, offY); err != nil {
			return Point{}, err
		}

	default:
		return Point{}, fmt.Errorf("missing coordinates %q/%q", prefix+"x", prefix+"y")
	}

	if !p.opts.Bounds.Empty() && !p.opts.Bounds.Contains(pt) {
		return Point{}, fmt.Errorf("coordinates %s outside screen bounds %s", pt, p.opts.Bounds)
	}
	return pt, nil
}

// paramSet wraps the decoded params object with typed accessors.
type paramSet map[string]interface{}

func (ps paramSet) hasAny(keys ...string) bool {
	for _, k := range keys {
		if _, ok := ps[k]; ok {
			return true
		}
	}
	return false
}

func (ps paramSet) optString(key string) (string, error) {
	v, ok := ps[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q must be a string", key)
	}
	return s, nil
}

func (ps paramSet) firstString(keys ...string) string {
	for _, k := range keys {
		if s, ok := ps[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func (ps paramSet) stringList(key string) ([]string, error) {
	v, ok := ps[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%q must contain only strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		// "ctrl+c" shorthand.
		return strings.Split(t, "+"), nil
	}
	return nil, fmt.Errorf("%q must be a list of key names", key)
}

// coord reads a pixel coordinate, rounding fractional values.
func (ps paramSet) coord(key string) (int, error) {
	v, ok := ps[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	f, err := asFloat(key, v)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

func (ps paramSet) integer(key string) (int, error) {
	v, ok := ps[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	return asInt(key, v)
}

func (ps paramSet) optInt(key string, def int) (int, error) {
	v, ok := ps[key]
	if !ok {
		return def, nil
	}
	return asInt(key, v)
}

func (ps paramSet) optDuration(key string) (time.Duration, error) {
	v, ok := ps[key]
	if !ok {
		return 0, nil
	}
	f, err := asFloat(key, v)
	if err != nil {
		return 0, err
	}
	return secondsToDuration(f)
}

func asFloat(key string, v interface{}) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%q must be a number", key)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q must be finite", key)
	}
	return f, nil
}

func asInt(key string, v interface{}) (int, error) {
	f, err := asFloat(key, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q must be an integer, got %v", key, f)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q out of range", key)
	}
	return int(f), nil
}
