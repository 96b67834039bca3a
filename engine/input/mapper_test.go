package input

import (
	"reflect"
	"testing"

	"github.com/nathoo/crawlcore/types"
)

func roomState() *types.State {
	return &types.State{
		Player: types.Player{Pos: types.Point{X: 2, Y: 2}, TimesPerTurn: 1},
		Level: types.Level{Rows: []string{
			"#####",
			"#...#",
			"#...#",
			"#...#",
			"#####",
		}},
		Flags: map[string]bool{},
	}
}

func TestMap_PrimaryKeys(t *testing.T) {
	tests := []struct {
		key   rune
		delta types.Point
	}{
		{'h', types.Point{X: -1, Y: 0}},
		{'j', types.Point{X: 0, Y: 1}},
		{'k', types.Point{X: 0, Y: -1}},
		{'l', types.Point{X: 1, Y: 0}},
		{'y', types.Point{X: -1, Y: -1}},
		{'u', types.Point{X: 1, Y: -1}},
		{'b', types.Point{X: -1, Y: 1}},
		{'n', types.Point{X: 1, Y: 1}},
	}
	m := NewMapper()
	for _, tt := range tests {
		b, ok := m.Binding(Rune(tt.key))
		if !ok || b.Kind != KindMove || b.Delta != tt.delta {
			t.Errorf("%q: binding = %+v, %v; want move %+v", tt.key, b, ok, tt.delta)
		}

		s := roomState()
		cmd, ok := m.Map(Rune(tt.key))
		if !ok {
			t.Fatalf("%q: no command", tt.key)
		}
		if _, err := cmd.Execute(s); err != nil {
			t.Fatalf("%q: %v", tt.key, err)
		}
		want := types.Point{X: 2 + tt.delta.X, Y: 2 + tt.delta.Y}
		if s.Player.Pos != want {
			t.Errorf("%q: pos = %+v, want %+v", tt.key, s.Player.Pos, want)
		}
	}
}

func TestMap_AlternatesMatchPrimary(t *testing.T) {
	tests := []struct {
		alt     Key
		primary rune
	}{
		{KeyLeft, 'h'},
		{KeyDown, 'j'},
		{KeyUp, 'k'},
		{KeyRight, 'l'},
		{KeyHome, 'y'},
		{KeyPgUp, 'u'},
		{KeyEnd, 'b'},
		{KeyPgDown, 'n'},
		{KeyEscape, EscapeRune},
	}
	m := NewMapper()
	for _, tt := range tests {
		alt, okAlt := m.Binding(Special(tt.alt))
		prim, okPrim := m.Binding(Rune(tt.primary))
		if !okAlt || !okPrim || alt != prim {
			t.Errorf("key %d: alternate %+v != primary %+v", tt.alt, alt, prim)
		}

		// Run both commands against identical states.
		sa, sp := roomState(), roomState()
		ca, _ := m.Map(Special(tt.alt))
		cp, _ := m.Map(Rune(tt.primary))
		ra, errA := ca.Execute(sa)
		rp, errP := cp.Execute(sp)
		if ra != rp || errA != errP {
			t.Errorf("key %d: results differ (%v,%v) vs (%v,%v)", tt.alt, ra, errA, rp, errP)
		}
		if !reflect.DeepEqual(sa, sp) {
			t.Errorf("key %d: states differ after execution", tt.alt)
		}
		if ca.Phase() != cp.Phase() || ca.Name() != cp.Name() {
			t.Errorf("key %d: command identity differs", tt.alt)
		}
	}
}

func TestMap_KThenArrowUp(t *testing.T) {
	m := NewMapper()
	for _, token := range []string{"k", "ArrowUp"} {
		ev, ok := ParseEvent(token)
		if !ok {
			t.Fatalf("ParseEvent(%q) failed", token)
		}
		b, ok := m.Binding(ev)
		if !ok || b.Kind != KindMove || b.Delta != (types.Point{X: 0, Y: -1}) {
			t.Errorf("%q: binding = %+v, want move (0,-1)", token, b)
		}
		if _, ok := m.Map(ev); !ok {
			t.Errorf("%q: expected a command", token)
		}
	}
}

func TestMap_FreeActions(t *testing.T) {
	m := NewMapper()

	s := roomState()
	cmd, ok := m.Map(Rune('s'))
	if !ok {
		t.Fatal("s should map to show map")
	}
	if used, _ := cmd.Execute(s); used || !s.ShowMap {
		t.Errorf("show map used=%v ShowMap=%v", used, s.ShowMap)
	}

	s = roomState()
	cmd, ok = m.Map(Rune(EscapeRune))
	if !ok {
		t.Fatal("escape should map to quit")
	}
	if used, _ := cmd.Execute(s); used || !s.Quit {
		t.Errorf("quit used=%v Quit=%v", used, s.Quit)
	}
}

func TestMap_Unmapped(t *testing.T) {
	m := NewMapper()
	for _, ev := range []Event{Rune('x'), Rune('K'), Rune('1'), Special(Key(99))} {
		if cmd, ok := m.Map(ev); ok || cmd != nil {
			t.Errorf("%+v: expected no command, got %v", ev, cmd)
		}
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		input string
		want  Event
		ok    bool
	}{
		{"k", Rune('k'), true},
		{"  h ", Rune('h'), true},
		{"ArrowUp", Special(KeyUp), true},
		{"PageDown", Special(KeyPgDown), true},
		{"pgup", Special(KeyPgUp), true},
		{"Home", Special(KeyHome), true},
		{"esc", Special(KeyEscape), true},
		{"", Event{}, false},
		{"north", Event{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseEvent(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseEvent(%q) = %+v, %v; want %+v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
