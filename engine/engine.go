// Package engine wires the turn driver, the input mapper and the status
// tracker into a single Step() entry point that front ends call once per
// key press.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sagikazarmark/slog-shim"

	"github.com/nathoo/crawlcore/engine/actions"
	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/engine/input"
	"github.com/nathoo/crawlcore/engine/save"
	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/engine/status"
	"github.com/nathoo/crawlcore/engine/turn"
	"github.com/nathoo/crawlcore/types"
)

// Engine holds the game definitions, the mutable state and the machinery
// that advances it.
type Engine struct {
	Defs   *state.Defs
	State  *types.State
	RNG    *RNG
	Driver *turn.Driver
	Status *status.Tracker
	Mapper *input.Mapper

	triggers *triggerWatch
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	log  *slog.Logger
	seed int64
}

// WithLogger sets the logger used by the engine and its components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithSeed overrides the RNG seed from the game data. Zero keeps it.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// New creates a new engine from definitions and schedules the commands that
// live for the whole game.
func New(defs *state.Defs, opts ...Option) (*Engine, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := state.NewState(defs)
	if o.seed != 0 {
		s.RNGSeed = o.seed
	}
	rng := NewRNG(s.RNGSeed)
	s.RNG = rng

	d := turn.New(s, turn.WithLogger(o.log))
	e := &Engine{
		Defs:     defs,
		State:    s,
		RNG:      rng,
		Driver:   d,
		Status:   status.NewTracker(defs, d, o.log),
		Mapper:   input.NewMapper(),
		triggers: &triggerWatch{last: s.Player.Pos},
		log:      o.log.With("source", "engine"),
	}

	for _, c := range []command.Command{
		actions.MoveBudget(),
		command.NewEternal("triggers", command.MainTurn, e.checkTriggers),
	} {
		if _, err := d.Schedule(c); err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", c.Name(), err)
		}
	}
	return e, nil
}

// RestoreRNG re-creates the RNG from seed and advances to the saved position.
func (e *Engine) RestoreRNG(seed int64, position int64) {
	e.RNG = RestoreRNG(seed, position)
	e.State.RNG = e.RNG
	e.State.RNGSeed = seed
	e.State.RNGPosition = position
}

// Step processes one input event. Unmapped input is ignored and costs nothing.
func (e *Engine) Step(ctx context.Context, ev input.Event) (types.Result, error) {
	cmd, ok := e.Mapper.Map(ev)
	if !ok {
		return types.Result{Turn: e.Driver.Turn(), Ignored: true}, nil
	}
	return e.submit(ctx, cmd)
}

// Rest spends one of the player's moves waiting.
func (e *Engine) Rest(ctx context.Context) (types.Result, error) {
	return e.submit(ctx, actions.Rest())
}

func (e *Engine) submit(ctx context.Context, cmd *command.Transient) (types.Result, error) {
	out, err := e.Driver.Submit(ctx, cmd)
	e.State.RNGPosition = e.RNG.Position()

	result := e.drain()
	result.Consumed = out.Consumed
	result.TurnEnded = out.Completed
	result.Turn = out.Turn
	result.ShowMap = e.State.ShowMap
	result.Quit = e.State.Quit
	e.State.ShowMap = false

	if err != nil {
		e.log.Error("step failed", "command", cmd.Name(), "err", err)
		return result, err
	}
	return result, nil
}

// Apply puts a status effect on the player. It takes hold at the next turn.
func (e *Engine) Apply(name string, turns int) (types.Result, error) {
	err := e.Status.Apply(e.State, name, turns)
	result := e.drain()
	result.Turn = e.Driver.Turn()
	return result, err
}

// Cure ends a status effect immediately.
func (e *Engine) Cure(name string) (types.Result, bool) {
	ok := e.Status.Cure(e.State, name)
	result := e.drain()
	result.Turn = e.Driver.Turn()
	return result, ok
}

// Save serializes the game, including active statuses and their remaining turns.
func (e *Engine) Save() ([]byte, error) {
	e.State.RNGPosition = e.RNG.Position()
	return save.Save(e.State, e.Defs, e.Status.Active())
}

// Load restores a saved game. Any turn in progress is abandoned. The save is
// validated first; a rejected save leaves the running game untouched.
func (e *Engine) Load(data []byte) error {
	sd, err := save.Load(data)
	if err != nil {
		return err
	}
	if sd.Game != "" && sd.Game != e.Defs.Game.Title {
		return fmt.Errorf("save is for %q, not %q", sd.Game, e.Defs.Game.Title)
	}
	if err := e.Status.Check(sd.Statuses); err != nil {
		return fmt.Errorf("restoring statuses: %w", err)
	}

	save.ApplySave(e.State, sd)
	e.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	e.Driver.Reset(sd.Turn)
	if err := e.Status.Restore(e.State, sd.Statuses); err != nil {
		return fmt.Errorf("restoring statuses: %w", err)
	}
	e.triggers.last = e.State.Player.Pos
	state.Drain(e.State)
	e.log.Info("game loaded", "turn", sd.Turn, "statuses", len(sd.Statuses))
	return nil
}

// Intro returns the title card and the game's intro text.
func (e *Engine) Intro() []string {
	var lines []string
	if e.Defs.Game.Title != "" {
		lines = append(lines, e.Defs.Game.Title)
	}
	if e.Defs.Game.Intro != "" {
		lines = append(lines, e.Defs.Game.Intro)
	}
	return lines
}

// StatusLine formats the player's vitals, the turn and active statuses.
func (e *Engine) StatusLine() string {
	p := e.State.Player
	moves := p.MovesLeft
	if !e.Driver.InTurn() {
		moves = max(p.TimesPerTurn, 1)
	}
	parts := []string{
		fmt.Sprintf("HP %d/%d", p.HP, p.MaxHP),
		fmt.Sprintf("Turn %d", e.Driver.Turn()),
		fmt.Sprintf("Moves %d/%d", moves, max(p.TimesPerTurn, 1)),
	}
	for _, a := range e.Status.Active() {
		parts = append(parts, fmt.Sprintf("%s(%d)", a.Flag, a.Remaining))
	}
	return strings.Join(parts, "  ")
}

// Pending lists the scheduled commands of every phase in execution order.
func (e *Engine) Pending() map[command.Phase][]turn.Entry {
	out := make(map[command.Phase][]turn.Entry, command.NumPhases)
	for _, p := range command.Phases() {
		out[p] = e.Driver.Pending(p)
	}
	return out
}

func (e *Engine) drain() types.Result {
	var result types.Result
	msgs, evts := state.Drain(e.State)
	for _, m := range msgs {
		result.Output = append(result.Output, m.Text)
	}
	result.Events = evts
	return result
}

// triggerWatch remembers where the player stood when triggers were last
// checked, so a trigger fires on entry and not on every turn spent on it.
type triggerWatch struct {
	last types.Point
}

func (e *Engine) checkTriggers(s *types.State) (bool, error) {
	pos := s.Player.Pos
	if pos == e.triggers.last {
		return false, nil
	}
	e.triggers.last = pos
	for _, tr := range e.Defs.Level.Triggers {
		if tr.At != pos {
			continue
		}
		if err := e.Status.Apply(s, tr.Status, tr.Turns); err != nil {
			return false, err
		}
	}
	return false, nil
}
