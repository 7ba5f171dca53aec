// File: internal/action/keys.go
package action

import (
	"fmt"
	"strings"
)

// keyAliases maps accepted spellings onto canonical key names.
var keyAliases = map[string]string{
	"return":     "enter",
	"esc":        "escape",
	"cmd":        "command",
	"meta":       "command",
	"super":      "command",
	"win":        "command",
	"windows":    "command",
	"control":    "ctrl",
	"option":     "alt",
	"del":        "delete",
	"pgup":       "pageup",
	"pgdn":       "pagedown",
	"page_up":    "pageup",
	"page_down":  "pagedown",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
	"spacebar":   "space",
	"caps_lock":  "capslock",
	"ins":        "insert",
}

// namedKeys is the set of non-character keys.
var namedKeys = map[string]struct{}{
	"enter": {}, "tab": {}, "space": {}, "backspace": {}, "delete": {}, "escape": {},
	"up": {}, "down": {}, "left": {}, "right": {},
	"home": {}, "end": {}, "pageup": {}, "pagedown": {}, "insert": {},
	"shift": {}, "ctrl": {}, "alt": {}, "command": {}, "capslock": {},
}

// printableKeys are single characters accepted as key names.
const printableKeys = "abcdefghijklmnopqrstuvwxyz0123456789`-=[]\\;',./"

// ModifierKeys are held while the final key of a hotkey is pressed.
var ModifierKeys = map[string]struct{}{
	"shift": {}, "ctrl": {}, "alt": {}, "command": {},
}

func init() {
	for i := 1; i <= 12; i++ {
		namedKeys[fmt.Sprintf("f%d", i)] = struct{}{}
	}
}

// CanonicalKey normalizes a key name and reports whether it is known.
func CanonicalKey(name string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(name))
	if k == "" {
		return "", false
	}
	if alias, ok := keyAliases[k]; ok {
		k = alias
	}
	if _, ok := namedKeys[k]; ok {
		return k, true
	}
	if len(k) == 1 && strings.Contains(printableKeys, k) {
		return k, true
	}
	return "", false
}

// IsModifier reports whether the canonical key name is a modifier.
func IsModifier(key string) bool {
	_, ok := ModifierKeys[key]
	return ok
}
