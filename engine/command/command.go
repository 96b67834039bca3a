// Package command defines the schedulable unit of game behaviour.
//
// A Command is one of three variants: Transient fires once and is discarded,
// Eternal runs every turn until cancelled, and Timed runs every turn while
// its counter is positive and fires a terminal effect when it reaches zero.
// The set is closed; the turn driver dispatches with a type switch.
package command

import (
	"errors"

	"github.com/nathoo/crawlcore/types"
)

// ErrNilState is returned when a command is executed without a game state.
var ErrNilState = errors.New("command: nil game state")

// Action is the per-turn body of a command. The bool result reports whether
// the action was a real, turn-consuming action.
type Action func(s *types.State) (bool, error)

// Expire is the terminal effect of a Timed command.
type Expire func(s *types.State) error

// Command is implemented by *Transient, *Eternal and *Timed only.
type Command interface {
	Name() string
	Phase() Phase
	sealed()
}

// Transient executes once, then is discarded regardless of its result.
type Transient struct {
	name   string
	phase  Phase
	act    Action
	player bool
}

// NewTransient creates a one-shot command for the given phase.
func NewTransient(name string, phase Phase, act Action) *Transient {
	return &Transient{name: name, phase: phase, act: act}
}

// PlayerAction creates a one-shot MAIN_TURN command originating from player input.
func PlayerAction(name string, act Action) *Transient {
	return &Transient{name: name, phase: MainTurn, act: act, player: true}
}

// Name returns the transient command's label, used in logs and errors.
func (t *Transient) Name() string { return t.name }

// Phase returns the phase the command runs in.
func (t *Transient) Phase() Phase { return t.phase }

func (t *Transient) sealed() {}

// FromPlayer reports whether the command came from player input.
func (t *Transient) FromPlayer() bool { return t.player }

// Execute runs the command body.
func (t *Transient) Execute(s *types.State) (bool, error) {
	if s == nil {
		return false, ErrNilState
	}
	return run(t.act, s)
}

// Eternal re-executes every turn until cancelled. Used for per-turn setup.
type Eternal struct {
	name  string
	phase Phase
	act   Action
}

// NewEternal creates a command that runs once in every turn.
func NewEternal(name string, phase Phase, act Action) *Eternal {
	return &Eternal{name: name, phase: phase, act: act}
}

// Name returns the eternal command's label, used in logs and errors.
func (e *Eternal) Name() string { return e.name }

// Phase returns the phase the command runs in.
func (e *Eternal) Phase() Phase { return e.phase }

func (e *Eternal) sealed() {}

// Execute runs the command body.
func (e *Eternal) Execute(s *types.State) (bool, error) {
	if s == nil {
		return false, ErrNilState
	}
	return run(e.act, s)
}

// Timed runs every turn while its remaining counter is positive.
type Timed struct {
	name      string
	phase     Phase
	act       Action
	expire    Expire
	remaining int
}

// NewTimed creates a countdown command. turns below one is treated as one.
// act may be nil for a pure countdown.
func NewTimed(name string, phase Phase, turns int, act Action, expire Expire) *Timed {
	if turns < 1 {
		turns = 1
	}
	return &Timed{name: name, phase: phase, act: act, expire: expire, remaining: turns}
}

// Name returns the timed command's label, used in logs and errors.
func (t *Timed) Name() string { return t.name }

// Phase returns the phase the command runs in.
func (t *Timed) Phase() Phase { return t.phase }

func (t *Timed) sealed() {}

// Remaining returns the number of executions left before expiry.
func (t *Timed) Remaining() int { return t.remaining }

// Extend adds turns to the countdown.
func (t *Timed) Extend(turns int) {
	if turns > 0 {
		t.remaining += turns
	}
}

// Execute runs the per-turn body without touching the counter.
func (t *Timed) Execute(s *types.State) (bool, error) {
	if s == nil {
		return false, ErrNilState
	}
	return run(t.act, s)
}

// Tick decrements the counter. On reaching zero it runs the terminal effect
// and reports expired.
func (t *Timed) Tick(s *types.State) (bool, error) {
	if s == nil {
		return false, ErrNilState
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining > 0 {
		return false, nil
	}
	if t.expire == nil {
		return true, nil
	}
	return true, t.expire(s)
}

func run(act Action, s *types.State) (bool, error) {
	if act == nil {
		return false, nil
	}
	return act(s)
}
