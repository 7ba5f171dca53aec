// -- internal/humanoid/keyboard.go --
package humanoid

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp/kb"
)

// keyDef describes one physical key.
type keyDef struct {
	key  string
	code string
	vk   int64
	text string
	mod  KeyModifier
}

// namedKeys maps canonical key names onto DOM key definitions.
var namedKeys = map[string]keyDef{
	"enter":     {key: "Enter", code: "Enter", vk: 13, text: "\r"},
	"tab":       {key: "Tab", code: "Tab", vk: 9},
	"space":     {key: " ", code: "Space", vk: 32, text: " "},
	"backspace": {key: "Backspace", code: "Backspace", vk: 8},
	"delete":    {key: "Delete", code: "Delete", vk: 46},
	"escape":    {key: "Escape", code: "Escape", vk: 27},
	"up":        {key: "ArrowUp", code: "ArrowUp", vk: 38},
	"down":      {key: "ArrowDown", code: "ArrowDown", vk: 40},
	"left":      {key: "ArrowLeft", code: "ArrowLeft", vk: 37},
	"right":     {key: "ArrowRight", code: "ArrowRight", vk: 39},
	"home":      {key: "Home", code: "Home", vk: 36},
	"end":       {key: "End", code: "End", vk: 35},
	"pageup":    {key: "PageUp", code: "PageUp", vk: 33},
	"pagedown":  {key: "PageDown", code: "PageDown", vk: 34},
	"insert":    {key: "Insert", code: "Insert", vk: 45},
	"capslock":  {key: "CapsLock", code: "CapsLock", vk: 20},
	"shift":     {key: "Shift", code: "ShiftLeft", vk: 16, mod: ModShift},
	"ctrl":      {key: "Control", code: "ControlLeft", vk: 17, mod: ModCtrl},
	"alt":       {key: "Alt", code: "AltLeft", vk: 18, mod: ModAlt},
	"command":   {key: "Meta", code: "MetaLeft", vk: 91, mod: ModMeta},
}

func init() {
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("F%d", i)
		namedKeys[fmt.Sprintf("f%d", i)] = keyDef{key: name, code: name, vk: int64(111 + i)}
	}
}

// lookupKey resolves a canonical key name. Single characters come from the
// US keyboard layout table.
func lookupKey(name string) (keyDef, bool) {
	if d, ok := namedKeys[name]; ok {
		return d, true
	}
	if r := []rune(name); len(r) == 1 {
		if k, ok := kb.Keys[r[0]]; ok {
			return keyDef{key: k.Key, code: k.Code, vk: k.Windows, text: k.Text}, true
		}
	}
	return keyDef{}, false
}

// hotkey presses keys in order and releases them in reverse. A single key
// is a plain key press.
func (h *Humanoid) hotkey(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("humanoid: no keys to press")
	}
	defs := make([]keyDef, len(names))
	for i, name := range names {
		d, ok := lookupKey(name)
		if !ok {
			return fmt.Errorf("humanoid: unknown key %q", name)
		}
		defs[i] = d
	}

	var mods KeyModifier
	for i, d := range defs {
		mods |= d.mod
		if err := h.keyDown(ctx, d, mods); err != nil {
			_ = h.releaseKeys(context.WithoutCancel(ctx), defs[:i], mods&^d.mod)
			return fmt.Errorf("humanoid: key down %q: %w", names[i], err)
		}
	}
	if err := h.pause(ctx, h.holdDuration()); err != nil {
		_ = h.releaseKeys(context.WithoutCancel(ctx), defs, mods)
		return err
	}
	return h.releaseKeys(ctx, defs, mods)
}

// releaseKeys sends key up events for defs in reverse order.
func (h *Humanoid) releaseKeys(ctx context.Context, defs []keyDef, mods KeyModifier) error {
	for i := len(defs) - 1; i >= 0; i-- {
		d := defs[i]
		mods &^= d.mod
		if err := h.keyUp(ctx, d, mods); err != nil {
			return fmt.Errorf("humanoid: key up %q: %w", d.key, err)
		}
	}
	return nil
}

// keyDown inserts the key's text only when no modifier other than shift is
// held, so shortcuts never type characters.
func (h *Humanoid) keyDown(ctx context.Context, d keyDef, mods KeyModifier) error {
	ev := KeyEventData{
		Type:                  RawKeyDown,
		Key:                   d.key,
		Code:                  d.code,
		WindowsVirtualKeyCode: d.vk,
		Modifiers:             mods,
	}
	if d.text != "" && mods&^ModShift == 0 {
		ev.Type = KeyDown
		ev.Text = d.text
	}
	return h.driver.DispatchKeyEvent(ctx, ev)
}

func (h *Humanoid) keyUp(ctx context.Context, d keyDef, mods KeyModifier) error {
	return h.driver.DispatchKeyEvent(ctx, KeyEventData{
		Type:                  KeyUp,
		Key:                   d.key,
		Code:                  d.code,
		WindowsVirtualKeyCode: d.vk,
		Modifiers:             mods,
	})
}

// typeText types text one character at a time. interval, when positive,
// replaces the configured per-key delay. With the model disabled the text
// is inserted in one call.
func (h *Humanoid) typeText(ctx context.Context, text string, interval time.Duration) error {
	if !h.cfg.Enabled {
		return h.driver.InsertText(ctx, text)
	}
	for i, r := range []rune(text) {
		if i > 0 {
			delay := interval
			if delay <= 0 {
				delay = h.between(h.cfg.KeyDelayMin, h.cfg.KeyDelayMax)
			}
			if err := h.pause(ctx, delay); err != nil {
				return err
			}
		}
		if err := h.typeRune(ctx, r); err != nil {
			return fmt.Errorf("humanoid: type %q: %w", r, err)
		}
	}
	return nil
}

// typeRune sends one character. Characters outside the keyboard layout are
// inserted directly.
func (h *Humanoid) typeRune(ctx context.Context, r rune) error {
	switch r {
	case '\n', '\r':
		return h.tap(ctx, namedKeys["enter"], ModNone)
	case '\t':
		return h.tap(ctx, namedKeys["tab"], ModNone)
	}

	k, ok := kb.Keys[r]
	if !ok || !k.Print {
		return h.driver.InsertText(ctx, string(r))
	}
	mods := ModNone
	if k.Shift {
		mods = ModShift
	}
	return h.tap(ctx, keyDef{key: k.Key, code: k.Code, vk: k.Windows, text: k.Text}, mods)
}

func (h *Humanoid) tap(ctx context.Context, d keyDef, mods KeyModifier) error {
	if err := h.keyDown(ctx, d, mods); err != nil {
		return err
	}
	return h.keyUp(ctx, d, mods)
}
