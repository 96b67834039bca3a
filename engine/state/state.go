// Package state manages the mutable game state and the accessors every
// command uses to read and mutate it.
package state

import (
	"strings"

	"github.com/nathoo/crawlcore/types"
)

// Defs holds the immutable game definitions loaded from Lua.
type Defs struct {
	Game     types.GameDef
	Level    types.LevelDef
	Statuses map[string]types.StatusDef
}

// NewState creates a fresh game state from definitions.
func NewState(defs *Defs) *types.State {
	times := defs.Game.TimesPerTurn
	if times < 1 {
		times = 1
	}
	hp := defs.Game.HP
	if hp < 1 {
		hp = 10
	}
	rows := make([]string, len(defs.Level.Rows))
	for i, row := range defs.Level.Rows {
		// The start marker is floor once the player is placed.
		rows[i] = strings.ReplaceAll(row, "@", ".")
	}
	return &types.State{
		Player: types.Player{
			Pos:          defs.Level.Start,
			HP:           hp,
			MaxHP:        hp,
			TimesPerTurn: times,
		},
		Level:   types.Level{Rows: rows},
		Flags:   map[string]bool{},
		RNGSeed: defs.Game.Seed,
	}
}

// GetFlag returns the value of a flag. Unset flags return false.
func GetFlag(s *types.State, name string) bool {
	return s.Flags[name]
}

// SetFlag sets or clears a flag. Cleared flags are removed.
func SetFlag(s *types.State, name string, value bool) {
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	if !value {
		delete(s.Flags, name)
		return
	}
	s.Flags[name] = true
}

// Emit appends a player-facing message stamped with the turn in progress.
func Emit(s *types.State, text string) {
	s.Messages = append(s.Messages, types.Message{Turn: s.TurnCount + 1, Text: text})
}

// EmitEvent records a trace event.
func EmitEvent(s *types.State, typ string, data map[string]any) {
	s.Events = append(s.Events, types.Event{Type: typ, Data: data})
}

// Drain empties the message and event outboxes and returns their contents.
func Drain(s *types.State) ([]types.Message, []types.Event) {
	msgs, evts := s.Messages, s.Events
	s.Messages = nil
	s.Events = nil
	return msgs, evts
}

// MovesLeft returns how many actions the player has left this turn.
func MovesLeft(s *types.State) int {
	return s.Player.MovesLeft
}

// ResetMoves refills the player's per-turn action budget.
func ResetMoves(s *types.State) {
	times := s.Player.TimesPerTurn
	if times < 1 {
		times = 1
	}
	s.Player.MovesLeft = times
}

// Tile returns the level rune at p. Out-of-range cells read as walls.
func Tile(s *types.State, p types.Point) rune {
	if p.Y < 0 || p.Y >= len(s.Level.Rows) {
		return '#'
	}
	row := []rune(s.Level.Rows[p.Y])
	if p.X < 0 || p.X >= len(row) {
		return '#'
	}
	return row[p.X]
}

// Passable reports whether the player can stand on p.
func Passable(s *types.State, p types.Point) bool {
	switch Tile(s, p) {
	case '#', ' ':
		return false
	default:
		return true
	}
}

// MapLines renders the level with the player drawn as '@'.
func MapLines(s *types.State) []string {
	lines := make([]string, len(s.Level.Rows))
	for y, row := range s.Level.Rows {
		runes := []rune(row)
		if y == s.Player.Pos.Y && s.Player.Pos.X >= 0 && s.Player.Pos.X < len(runes) {
			runes[s.Player.Pos.X] = '@'
		}
		lines[y] = string(runes)
	}
	return lines
}
