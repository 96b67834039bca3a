// Package turn drives the game one turn at a time. A turn runs the
// START_TURN, MAIN_TURN and END_TURN buckets in order and performs the
// lifecycle bookkeeping of every scheduled command.
//
// Registrations never enter the turn that is running: Schedule records into
// an incoming queue that is merged into the phase buckets when the next
// START_TURN begins. Cancellation only marks an entry; marked and finished
// entries are swept at phase boundaries.
//
// A command error aborts the turn but does not close it. The next Submit or
// RunTurn resumes at the phase that failed, and a command that already ran
// in this turn (the failing one included) is not run again.
package turn

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sagikazarmark/slog-shim"

	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/types"
)

var (
	// ErrNilCommand is returned when a nil command is scheduled or submitted.
	ErrNilCommand = errors.New("turn: nil command")
	// ErrInvalidPhase is returned for commands tagged with an undeclared phase.
	ErrInvalidPhase = errors.New("turn: invalid phase")
)

// Handle identifies a scheduled command for cancellation.
type Handle uuid.UUID

func (h Handle) String() string {
	return uuid.UUID(h).String()
}

type entry struct {
	handle    Handle
	cmd       command.Command
	cancelled bool
	done      bool
	ran       uint64 // epoch of the last turn this entry executed in
}

func (e *entry) live() bool {
	return !e.cancelled && !e.done
}

// Entry is a read-only view of a pending command.
type Entry struct {
	Handle    Handle
	Name      string
	Phase     command.Phase
	Kind      string // "transient", "eternal" or "timed"
	Remaining int    // timed commands only
}

// Outcome reports what a Submit or RunTurn call did.
type Outcome struct {
	Turn      int  // completed turns after the call
	Consumed  bool // a player-originated transient returned true
	Completed bool // END_TURN was drained and the turn counter advanced
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l.With("source", "turn")
		}
	}
}

// Driver owns the pending commands and executes turns against one state.
type Driver struct {
	state    *types.State
	buckets  [command.NumPhases][]*entry
	incoming []*entry
	index    map[Handle]*entry
	open     bool          // a turn has begun and not yet completed
	cursor   command.Phase // phase the open turn is in
	epoch    uint64        // bumped each time a turn begins
	turn     int
	log      *slog.Logger
}

// New creates a driver bound to the given state.
func New(s *types.State, opts ...Option) *Driver {
	d := &Driver{
		state: s,
		index: map[Handle]*entry{},
		log:   slog.Default().With("source", "turn"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Schedule registers a command. It starts executing with the next turn that
// begins; a turn already in progress never sees it.
func (d *Driver) Schedule(c command.Command) (Handle, error) {
	if c == nil {
		return Handle{}, ErrNilCommand
	}
	if !c.Phase().Valid() {
		return Handle{}, fmt.Errorf("%w: %s for %q", ErrInvalidPhase, c.Phase(), c.Name())
	}
	h := Handle(uuid.New())
	e := &entry{handle: h, cmd: c}
	d.incoming = append(d.incoming, e)
	d.index[h] = e
	return h, nil
}

// Cancel marks a scheduled command for removal. It will not execute again,
// even if its phase is currently running. Returns false if the handle is
// unknown or the command already finished.
func (d *Driver) Cancel(h Handle) bool {
	e, ok := d.index[h]
	if !ok || !e.live() {
		return false
	}
	e.cancelled = true
	delete(d.index, h)
	return true
}

// Scheduled reports whether the handle refers to a live command.
func (d *Driver) Scheduled(h Handle) bool {
	e, ok := d.index[h]
	return ok && e.live()
}

// Turn returns the number of completed turns.
func (d *Driver) Turn() int {
	return d.turn
}

// InTurn reports whether a turn has begun and is awaiting completion.
func (d *Driver) InTurn() bool {
	return d.open
}

// Reset closes any open turn and sets the completed-turn counter.
// Scheduled commands are kept.
func (d *Driver) Reset(turn int) {
	d.open = false
	d.cursor = command.StartTurn
	d.turn = turn
	if d.state != nil {
		d.state.TurnCount = turn
	}
}

// Pending lists the live commands for a phase in execution order, including
// registrations that will join at the next turn.
func (d *Driver) Pending(p command.Phase) []Entry {
	if !p.Valid() {
		return nil
	}
	var out []Entry
	for _, e := range d.buckets[p] {
		if e.live() {
			out = append(out, view(e))
		}
	}
	for _, e := range d.incoming {
		if e.live() && e.cmd.Phase() == p {
			out = append(out, view(e))
		}
	}
	return out
}

// Submit executes one player action in the MAIN_TURN slot of the current
// turn, running START_TURN first if this is the turn's first action.
//
// A true result spends one of the player's moves. When none remain, the rest
// of the turn runs: the MAIN_TURN bucket, then END_TURN. A false result
// leaves the turn open and advances nothing.
func (d *Driver) Submit(ctx context.Context, t *command.Transient) (Outcome, error) {
	if d.state == nil {
		return Outcome{Turn: d.turn}, command.ErrNilState
	}
	if t == nil {
		return Outcome{Turn: d.turn}, ErrNilCommand
	}
	if t.Phase() != command.MainTurn {
		return Outcome{Turn: d.turn}, fmt.Errorf("%w: submitted %q belongs to %s", ErrInvalidPhase, t.Name(), t.Phase())
	}
	// A turn left in END_TURN by an earlier abort is completed first.
	if d.open && d.cursor > command.MainTurn {
		if _, err := d.finish(ctx, false); err != nil {
			return Outcome{Turn: d.turn}, err
		}
	}
	if err := d.begin(ctx); err != nil {
		return Outcome{Turn: d.turn}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome{Turn: d.turn}, d.abort(command.MainTurn, err)
	}

	ok, err := t.Execute(d.state)
	if err != nil {
		return Outcome{Turn: d.turn}, d.abort(command.MainTurn, fmt.Errorf("%s: %w", t.Name(), err))
	}
	if !ok {
		return Outcome{Turn: d.turn}, nil
	}

	d.state.Player.MovesLeft--
	if d.state.Player.MovesLeft > 0 {
		return Outcome{Turn: d.turn, Consumed: true}, nil
	}
	return d.finish(ctx, true)
}

// RunTurn advances exactly one turn without player input, completing the
// open turn if there is one.
func (d *Driver) RunTurn(ctx context.Context) (Outcome, error) {
	if d.state == nil {
		return Outcome{Turn: d.turn}, command.ErrNilState
	}
	if err := d.begin(ctx); err != nil {
		return Outcome{Turn: d.turn}, err
	}
	return d.finish(ctx, false)
}

// begin opens a turn if none is open, merging new registrations, and runs
// START_TURN unless the open turn is already past it.
func (d *Driver) begin(ctx context.Context) error {
	if !d.open {
		d.merge()
		d.open = true
		d.cursor = command.StartTurn
		d.epoch++
	}
	if d.cursor != command.StartTurn {
		return nil
	}
	if _, err := d.runPhase(ctx, command.StartTurn); err != nil {
		return err
	}
	d.cursor = command.MainTurn
	return nil
}

// finish drains the remaining phases of the open turn and closes it.
func (d *Driver) finish(ctx context.Context, consumed bool) (Outcome, error) {
	for p := max(d.cursor, command.MainTurn); p <= command.EndTurn; p++ {
		d.cursor = p
		c, err := d.runPhase(ctx, p)
		if err != nil {
			return Outcome{Turn: d.turn, Consumed: consumed}, err
		}
		consumed = consumed || c
	}
	d.turn++
	d.state.TurnCount = d.turn
	d.open = false
	d.cursor = command.StartTurn
	d.log.Debug("turn completed", "turn", d.turn, "consumed", consumed)
	return Outcome{Turn: d.turn, Consumed: consumed, Completed: true}, nil
}

func (d *Driver) merge() {
	for _, e := range d.incoming {
		if !e.live() {
			continue
		}
		p := e.cmd.Phase()
		d.buckets[p] = append(d.buckets[p], e)
	}
	d.incoming = nil
}

// runPhase executes every live entry of the bucket in registration order,
// skipping entries that already ran in this turn.
// It reports whether a player-originated transient returned true.
func (d *Driver) runPhase(ctx context.Context, p command.Phase) (bool, error) {
	consumed := false
	for _, e := range d.buckets[p] {
		if !e.live() || e.ran == d.epoch {
			continue
		}
		if err := ctx.Err(); err != nil {
			return consumed, d.abort(p, err)
		}
		e.ran = d.epoch
		ok, err := d.execute(e)
		if err != nil {
			return consumed, d.abort(p, fmt.Errorf("%s: %w", e.cmd.Name(), err))
		}
		if t, isTransient := e.cmd.(*command.Transient); isTransient && ok && t.FromPlayer() {
			consumed = true
		}
	}
	d.sweep()
	return consumed, nil
}

func (d *Driver) execute(e *entry) (bool, error) {
	switch c := e.cmd.(type) {
	case *command.Transient:
		e.done = true
		return c.Execute(d.state)

	case *command.Eternal:
		return c.Execute(d.state)

	case *command.Timed:
		ok, err := c.Execute(d.state)
		if err != nil {
			return ok, err
		}
		expired, err := c.Tick(d.state)
		if expired {
			e.done = true
			d.log.Debug("timed command expired", "name", c.Name(), "turn", d.turn+1)
		}
		return ok, err

	default:
		e.done = true
		return false, fmt.Errorf("turn: unsupported command %T", c)
	}
}

// sweep drops cancelled and finished entries from every bucket.
func (d *Driver) sweep() {
	for p := range d.buckets {
		bucket := d.buckets[p]
		kept := bucket[:0]
		for _, e := range bucket {
			if e.live() {
				kept = append(kept, e)
				continue
			}
			delete(d.index, e.handle)
		}
		for i := len(kept); i < len(bucket); i++ {
			bucket[i] = nil
		}
		d.buckets[p] = kept
	}
}

// abort stops the open turn at phase p after a failure. The turn stays
// open; commands that did not run yet are run when it resumes.
func (d *Driver) abort(p command.Phase, err error) error {
	d.sweep()
	d.cursor = p
	d.log.Warn("turn aborted", "turn", d.turn+1, "phase", p.String(), "err", err)
	return fmt.Errorf("turn %d %s: %w", d.turn+1, p, err)
}

func view(e *entry) Entry {
	v := Entry{Handle: e.handle, Name: e.cmd.Name(), Phase: e.cmd.Phase()}
	switch c := e.cmd.(type) {
	case *command.Transient:
		v.Kind = "transient"
	case *command.Eternal:
		v.Kind = "eternal"
	case *command.Timed:
		v.Kind = "timed"
		v.Remaining = c.Remaining()
	}
	return v
}
