// Package status applies N-turn status effects such as confusion or haste.
// Each active status is backed by exactly one Timed command on the turn
// driver; its expiry clears the status flag and emits a flavor message.
package status

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sagikazarmark/slog-shim"

	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/engine/turn"
	"github.com/nathoo/crawlcore/types"
)

// ErrUnknownStatus is returned when a status has no definition.
var ErrUnknownStatus = errors.New("status: unknown status")

// Scheduler is the part of the turn driver the tracker needs.
type Scheduler interface {
	Schedule(c command.Command) (turn.Handle, error)
	Cancel(h turn.Handle) bool
	Scheduled(h turn.Handle) bool
}

// Active describes one status in effect.
type Active struct {
	Name      string `json:"name"`
	Flag      string `json:"flag"`
	Remaining int    `json:"remaining"`
}

type active struct {
	def    types.StatusDef
	handle turn.Handle
	cmd    *command.Timed
}

// Tracker owns the timed commands of all active statuses.
type Tracker struct {
	defs      map[string]types.StatusDef
	baseTimes int
	sched     Scheduler
	active    map[string]*active
	log       *slog.Logger
}

// NewTracker creates a tracker for the statuses in defs.
func NewTracker(defs *state.Defs, sched Scheduler, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	base := defs.Game.TimesPerTurn
	if base < 1 {
		base = 1
	}
	return &Tracker{
		defs:      defs.Statuses,
		baseTimes: base,
		sched:     sched,
		active:    map[string]*active{},
		log:       log.With("source", "status"),
	}
}

// Apply puts a status into effect for turns turns (0 = its default duration).
// Applying a status that is already active extends it.
func (t *Tracker) Apply(s *types.State, name string, turns int) error {
	return t.apply(s, name, turns, true)
}

func (t *Tracker) apply(s *types.State, name string, turns int, announce bool) error {
	if s == nil {
		return command.ErrNilState
	}
	def, ok := t.defs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
	if turns <= 0 {
		turns = def.Duration
	}
	if turns <= 0 {
		turns = 1
	}

	if a, ok := t.active[name]; ok && t.sched.Scheduled(a.handle) {
		a.cmd.Extend(turns)
		t.log.Debug("status extended", "status", name, "remaining", a.cmd.Remaining())
		state.EmitEvent(s, "status_extended", map[string]any{"status": name, "remaining": a.cmd.Remaining()})
		return nil
	}

	phase, err := command.ParsePhase(def.Phase)
	if err != nil {
		return fmt.Errorf("status %q: %w", name, err)
	}
	cmd := command.NewTimed("status:"+name, phase, turns, nil, t.expire(name))
	h, err := t.sched.Schedule(cmd)
	if err != nil {
		return fmt.Errorf("status %q: %w", name, err)
	}
	t.active[name] = &active{def: def, handle: h, cmd: cmd}

	state.SetFlag(s, def.Flag, true)
	t.updateTimes(s)
	if announce && def.Apply != "" {
		state.Emit(s, def.Apply)
	}
	state.EmitEvent(s, "status_applied", map[string]any{"status": name, "turns": turns})
	t.log.Info("status applied", "status", name, "turns", turns, "phase", phase.String())
	return nil
}

func (t *Tracker) expire(name string) command.Expire {
	return func(s *types.State) error {
		a, ok := t.active[name]
		if !ok {
			return nil
		}
		delete(t.active, name)
		state.SetFlag(s, a.def.Flag, false)
		t.updateTimes(s)
		if msg := pick(s, a.def.Expire); msg != "" {
			state.Emit(s, msg)
		}
		state.EmitEvent(s, "status_expired", map[string]any{"status": name})
		t.log.Info("status expired", "status", name)
		return nil
	}
}

// Cure ends a status immediately. Its timed command is cancelled and never
// runs again. Returns false if the status was not active.
func (t *Tracker) Cure(s *types.State, name string) bool {
	a, ok := t.active[name]
	if !ok {
		return false
	}
	t.sched.Cancel(a.handle)
	delete(t.active, name)
	if s != nil {
		state.SetFlag(s, a.def.Flag, false)
		t.updateTimes(s)
		state.EmitEvent(s, "status_cured", map[string]any{"status": name})
	}
	t.log.Info("status cured", "status", name)
	return true
}

// Clear cures every active status.
func (t *Tracker) Clear(s *types.State) {
	for name := range t.active {
		t.Cure(s, name)
	}
}

// Check reports whether every saved status can be restored: it must be
// defined and name a valid phase.
func (t *Tracker) Check(saved []Active) error {
	for _, a := range saved {
		def, ok := t.defs[a.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStatus, a.Name)
		}
		if _, err := command.ParsePhase(def.Phase); err != nil {
			return fmt.Errorf("status %q: %w", a.Name, err)
		}
	}
	return nil
}

// Restore replaces the active statuses with a saved set without announcing
// them. Nothing changes if the set fails Check.
func (t *Tracker) Restore(s *types.State, saved []Active) error {
	if s == nil {
		return command.ErrNilState
	}
	if err := t.Check(saved); err != nil {
		return err
	}
	t.Clear(s)
	for _, a := range saved {
		if err := t.apply(s, a.Name, a.Remaining, false); err != nil {
			return err
		}
	}
	return nil
}

// Active lists the statuses in effect, sorted by name.
func (t *Tracker) Active() []Active {
	out := make([]Active, 0, len(t.active))
	for name, a := range t.active {
		out = append(out, Active{Name: name, Flag: a.def.Flag, Remaining: a.cmd.Remaining()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Remaining returns the turns left on a status, or 0 if it is not active.
func (t *Tracker) Remaining(name string) int {
	if a, ok := t.active[name]; ok {
		return a.cmd.Remaining()
	}
	return 0
}

// updateTimes sets the player's actions per turn to the largest override
// among active statuses.
func (t *Tracker) updateTimes(s *types.State) {
	times := t.baseTimes
	for _, a := range t.active {
		if a.def.TimesPerTurn > times {
			times = a.def.TimesPerTurn
		}
	}
	s.Player.TimesPerTurn = times
}

func pick(s *types.State, msgs []string) string {
	switch {
	case len(msgs) == 0:
		return ""
	case len(msgs) == 1 || s.RNG == nil:
		return msgs[0]
	default:
		return msgs[s.RNG.Index(len(msgs))]
	}
}
