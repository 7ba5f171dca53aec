package action

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_EnforceInvariants(t *testing.T) {
	_, err := TypeText("", 0)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = Hotkey()
	assert.ErrorIs(t, err, ErrNoKeys)

	_, err = Hotkey("ctrl", "nope")
	assert.ErrorIs(t, err, ErrUnknownKeyName)

	_, err = ScrollBy(0, false, nil)
	assert.ErrorIs(t, err, ErrZeroScroll)

	_, err = Wait(-time.Second)
	assert.ErrorIs(t, err, ErrNegativeDelay)

	_, err = Click(Point{}, "thumb")
	assert.ErrorIs(t, err, ErrUnknownButton)

	a, err := Click(Point{X: 3, Y: 4}, "")
	require.NoError(t, err)
	assert.Equal(t, ButtonLeft, a.Button)
}

func TestKind_Classification(t *testing.T) {
	assert.True(t, KindDone.IsTerminal())
	assert.True(t, KindFail.IsTerminal())
	assert.False(t, KindClick.IsTerminal())

	assert.True(t, KindDrag.HasPosition())
	assert.False(t, KindScroll.HasPosition())
	assert.False(t, Kind("teleport").Valid())
}

func TestAction_Points(t *testing.T) {
	d, err := Drag(Point{X: 1, Y: 2}, Point{X: 3, Y: 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, d.Points())

	s, err := ScrollBy(2, false, nil)
	require.NoError(t, err)
	assert.Empty(t, s.Points())

	assert.Empty(t, Done("ok").Points())
}

func TestAction_Summary(t *testing.T) {
	c, _ := Click(Point{X: 200, Y: 300}, ButtonLeft)
	assert.Equal(t, "click (200, 300)", c.Summary())

	h, _ := Hotkey("cmd", "space")
	assert.Equal(t, "hotkey command+space", h.Summary())

	s, _ := ScrollBy(-3, false, nil)
	assert.Equal(t, "scroll down 3", s.Summary())

	assert.Equal(t, "done: finished", Done(" finished ").Summary())
}

func TestCanonicalKey(t *testing.T) {
	cases := map[string]string{
		"Enter": "enter", "RETURN": "enter", "esc": "escape", "cmd": "command",
		"control": "ctrl", "F5": "f5", "a": "a", "/": "/", "PgDn": "pagedown",
	}
	for in, want := range cases {
		got, ok := CanonicalKey(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "f13", "hyper", "ab"} {
		_, ok := CanonicalKey(bad)
		assert.False(t, ok, bad)
	}
	assert.True(t, IsModifier("shift"))
	assert.False(t, IsModifier("a"))
}
