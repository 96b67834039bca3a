package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sagikazarmark/slog-shim"

	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled defs for referential integrity and consistency.
func validate(defs *state.Defs) error {
	ve := &ValidationError{}

	if defs.Game.Title == "" {
		ve.Errors = append(ve.Errors, "Game.Title is required")
	}
	if defs.Game.TimesPerTurn < 0 {
		ve.Errors = append(ve.Errors, "Game.times_per_turn must not be negative")
	}
	if defs.Game.HP < 0 {
		ve.Errors = append(ve.Errors, "Game.hp must not be negative")
	}

	validateLevel(defs, ve)
	validateStatuses(defs, ve)

	for _, w := range ve.Warnings {
		slog.Warn("game data", "warning", w)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLevel(defs *state.Defs, ve *ValidationError) {
	level := defs.Level
	if len(level.Rows) == 0 {
		ve.Errors = append(ve.Errors, "Level.rows is required")
		return
	}

	starts := 0
	for _, row := range level.Rows {
		starts += strings.Count(row, "@")
	}
	switch {
	case starts == 0:
		ve.Errors = append(ve.Errors, "level has no start cell '@'")
	case starts > 1:
		ve.Errors = append(ve.Errors, fmt.Sprintf("level has %d start cells '@', want 1", starts))
	}

	grid := &types.State{Level: types.Level{Rows: level.Rows}}
	for i, tr := range level.Triggers {
		if _, ok := defs.Statuses[tr.Status]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"trigger %d references undefined status %q", i+1, tr.Status))
		}
		if !state.Passable(grid, tr.At) {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"trigger %d at (%d,%d) is not on a floor cell", i+1, tr.At.X, tr.At.Y))
		}
		if tr.Turns < 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"trigger %d has negative turns", i+1))
		}
	}
}

func validateStatuses(defs *state.Defs, ve *ValidationError) {
	used := map[string]bool{}
	for _, tr := range defs.Level.Triggers {
		used[tr.Status] = true
	}

	ids := make([]string, 0, len(defs.Statuses))
	for id := range defs.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		st := defs.Statuses[id]
		if st.Duration < 1 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"status %q duration must be at least 1", id))
		}
		if _, err := command.ParsePhase(st.Phase); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("status %q: %v", id, err))
		}
		if st.TimesPerTurn < 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"status %q times_per_turn must not be negative", id))
		}
		if len(st.Expire) == 0 {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"status %q has no expire message", id))
		}
		if !used[id] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"status %q is not placed by any trigger", id))
		}
	}
}
