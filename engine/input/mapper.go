// Package input converts raw key events into player commands.
// Primary keys are runes; alternate encodings resolve through a flat table
// to the primary rune, so both produce the same command.
package input

import (
	"strings"
	"unicode/utf8"

	"github.com/nathoo/crawlcore/engine/actions"
	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/types"
)

// Key identifies a non-rune key. KeyRune means the event carries a rune.
type Key int

const (
	KeyRune Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPgUp
	KeyPgDown
	KeyEscape
)

// EscapeRune is the primary key for quitting.
const EscapeRune = '\x1b'

// Event is one raw input event.
type Event struct {
	Key  Key
	Rune rune
}

// Rune builds a printable-key event.
func Rune(r rune) Event { return Event{Key: KeyRune, Rune: r} }

// Special builds a non-rune key event.
func Special(k Key) Event { return Event{Key: k} }

// alternates maps every alternate encoding to its primary rune.
var alternates = map[Key]rune{
	KeyLeft:   'h',
	KeyDown:   'j',
	KeyUp:     'k',
	KeyRight:  'l',
	KeyHome:   'y',
	KeyPgUp:   'u',
	KeyEnd:    'b',
	KeyPgDown: 'n',
	KeyEscape: EscapeRune,
}

var keyNames = map[string]Key{
	"up":         KeyUp,
	"arrowup":    KeyUp,
	"down":       KeyDown,
	"arrowdown":  KeyDown,
	"left":       KeyLeft,
	"arrowleft":  KeyLeft,
	"right":      KeyRight,
	"arrowright": KeyRight,
	"home":       KeyHome,
	"end":        KeyEnd,
	"pgup":       KeyPgUp,
	"pageup":     KeyPgUp,
	"pgdown":     KeyPgDown,
	"pgdn":       KeyPgDown,
	"pagedown":   KeyPgDown,
	"esc":        KeyEscape,
	"escape":     KeyEscape,
}

// ParseEvent reads a key token as typed in line mode: a key name such as
// "ArrowUp", "PageDown" or "esc", or a single character.
func ParseEvent(token string) (Event, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Event{}, false
	}
	if k, ok := keyNames[strings.ToLower(token)]; ok {
		return Special(k), true
	}
	r, size := utf8.DecodeRuneInString(token)
	if size != len(token) || r == utf8.RuneError {
		return Event{}, false
	}
	return Rune(r), true
}

// Kind is the canonical action a key resolves to.
type Kind int

const (
	KindMove Kind = iota + 1
	KindShowMap
	KindQuit
)

// Binding is the canonical meaning of a primary key.
type Binding struct {
	Key   rune
	Kind  Kind
	Delta types.Point // KindMove only
}

// Mapper resolves events to commands.
type Mapper struct {
	primary map[rune]Binding
}

// NewMapper creates a mapper with the standard key table.
func NewMapper() *Mapper {
	m := &Mapper{primary: map[rune]Binding{}}
	for i, r := range []rune{'h', 'j', 'k', 'l', 'y', 'u', 'b', 'n'} {
		m.primary[r] = Binding{Key: r, Kind: KindMove, Delta: actions.Directions[i]}
	}
	m.primary['s'] = Binding{Key: 's', Kind: KindShowMap}
	m.primary[EscapeRune] = Binding{Key: EscapeRune, Kind: KindQuit}
	return m
}

// Resolve returns the primary rune for an event. Alternates go through the
// flat table; rune events are returned as-is.
func Resolve(ev Event) (rune, bool) {
	if ev.Key == KeyRune {
		return ev.Rune, true
	}
	r, ok := alternates[ev.Key]
	return r, ok
}

// Binding returns the canonical binding for an event.
func (m *Mapper) Binding(ev Event) (Binding, bool) {
	r, ok := Resolve(ev)
	if !ok {
		return Binding{}, false
	}
	b, ok := m.primary[r]
	return b, ok
}

// Map converts an event to a player command. Unmapped input returns false
// and must not be submitted.
func (m *Mapper) Map(ev Event) (*command.Transient, bool) {
	b, ok := m.Binding(ev)
	if !ok {
		return nil, false
	}
	switch b.Kind {
	case KindMove:
		return actions.Move(b.Delta), true
	case KindShowMap:
		return actions.ShowMap(), true
	case KindQuit:
		return actions.Quit(), true
	default:
		return nil, false
	}
}
