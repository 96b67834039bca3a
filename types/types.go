// Package types defines the shared data structures for the crawlcore engine.
// This package contains only type definitions: no logic, no methods.
package types

// Point is a grid position or a movement delta.
type Point struct {
	X int
	Y int
}

// Dice is the random source commands draw from.
type Dice interface {
	Roll(sides int) int // 1..sides
	Index(n int) int    // 0..n-1
}

// Player holds the player's runtime state.
type Player struct {
	Pos          Point
	HP           int
	MaxHP        int
	MovesLeft    int // actions left in the current turn
	TimesPerTurn int // actions granted per turn (2 while hasted)
}

// Message is one line of player-facing text, stamped with the turn it was emitted in.
type Message struct {
	Turn int
	Text string
}

// Event is emitted by commands for tracing.
type Event struct {
	Type string
	Data map[string]any
}

// Level is the walkable map. Out-of-range cells are walls.
type Level struct {
	Rows []string
}

// Trigger applies a status effect when the player steps onto a cell.
type Trigger struct {
	At     Point
	Status string
	Turns  int // 0 = status default duration
}

// LevelDef is the level definition from Lua.
type LevelDef struct {
	Rows     []string
	Start    Point
	Triggers []Trigger
}

// GameDef holds game metadata from Lua.
type GameDef struct {
	Title        string
	Author       string
	Version      string
	Intro        string
	Seed         int64
	TimesPerTurn int
	HP           int
}

// StatusDef describes an N-turn status effect.
type StatusDef struct {
	ID           string
	Flag         string
	Duration     int
	Phase        string   // "start", "main" or "end"
	Apply        string   // message on application
	Expire       []string // flavor messages, one is picked on expiry
	TimesPerTurn int      // > 0 overrides Player.TimesPerTurn while active
}

// State is the complete mutable game state shared by every command.
type State struct {
	Player      Player
	Level       Level
	Flags       map[string]bool
	Messages    []Message // outbox, drained after every step
	Events      []Event   // trace events, drained after every step
	TurnCount   int
	RNG         Dice
	RNGSeed     int64
	RNGPosition int64
	ShowMap     bool
	Quit        bool
}

// Result is the output of a single player step.
type Result struct {
	Output    []string
	Events    []Event
	Consumed  bool // a player action used up one of the turn's moves
	TurnEnded bool // all phases of the turn ran
	Turn      int  // completed turns so far
	ShowMap   bool
	Quit      bool
	Ignored   bool // the input mapped to no command
}
