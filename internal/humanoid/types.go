// internal/humanoid/types.go
package humanoid

// MouseEventType defines the type of mouse event.
// These strings align with the DevTools protocol event types.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
	MouseWheel   MouseEventType = "mouseWheel"
)

// MouseButton defines the mouse button.
type MouseButton string

const (
	ButtonNone   MouseButton = "none"
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// MouseEventData holds the data required to dispatch a mouse event.
type MouseEventData struct {
	Type MouseEventType
	X    float64
	Y    float64
	// Button that was pressed or released (relevant for Press/Release events).
	Button MouseButton
	// Number of consecutive clicks.
	ClickCount int
	// Buttons is a bitfield of the buttons currently held (1: Left, 2: Right, 4: Middle).
	Buttons int64
	// DeltaX and DeltaY are used for MouseWheel events.
	DeltaX float64
	DeltaY float64
}

// KeyEventType defines the type of key event.
type KeyEventType string

const (
	KeyDown    KeyEventType = "keyDown"
	KeyUp      KeyEventType = "keyUp"
	RawKeyDown KeyEventType = "rawKeyDown"
)

// KeyModifier is a bitmask of held modifiers. The values match the
// DevTools protocol modifiers field.
type KeyModifier int64

const (
	ModNone  KeyModifier = 0
	ModAlt   KeyModifier = 1
	ModCtrl  KeyModifier = 2
	ModMeta  KeyModifier = 4
	ModShift KeyModifier = 8
)

// KeyEventData holds the data required to dispatch a key event.
type KeyEventData struct {
	Type KeyEventType
	// Key is the DOM key value ("a", "Enter", "Control").
	Key string
	// Code is the physical key code ("KeyA", "Enter", "ControlLeft").
	Code string
	// Text is inserted by a KeyDown; empty for non-printing keys.
	Text string
	// WindowsVirtualKeyCode is the legacy keyCode value.
	WindowsVirtualKeyCode int64
	Modifiers             KeyModifier
}
