// Package actions implements the concrete commands the player and the game
// setup schedule: movement, the free actions, resting and the per-turn move
// budget.
package actions

import (
	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/types"
)

// ConfusedFlag is the state flag that randomizes movement.
const ConfusedFlag = "confused"

// Directions lists the eight movement deltas in key order: h j k l y u b n.
var Directions = []types.Point{
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: -1, Y: -1},
	{X: 1, Y: -1},
	{X: -1, Y: 1},
	{X: 1, Y: 1},
}

// Move returns a player command that steps by delta.
//
// Walking into a wall is a free action. While confused the direction is
// drawn at random, and a stumble into a wall still costs the move.
func Move(delta types.Point) *command.Transient {
	return command.PlayerAction("move", func(s *types.State) (bool, error) {
		d := delta
		confused := state.GetFlag(s, ConfusedFlag)
		if confused && s.RNG != nil {
			d = Directions[s.RNG.Index(len(Directions))]
		}

		target := types.Point{X: s.Player.Pos.X + d.X, Y: s.Player.Pos.Y + d.Y}
		if !state.Passable(s, target) {
			if confused {
				state.Emit(s, "You stumble into a wall.")
				return true, nil
			}
			state.Emit(s, "You bump into a wall.")
			return false, nil
		}

		from := s.Player.Pos
		s.Player.Pos = target
		state.EmitEvent(s, "player_moved", map[string]any{
			"from": from,
			"to":   target,
		})
		return true, nil
	})
}

// ShowMap asks the front end to draw the full map. It costs nothing.
func ShowMap() *command.Transient {
	return command.PlayerAction("show-map", func(s *types.State) (bool, error) {
		s.ShowMap = true
		return false, nil
	})
}

// Quit asks the front end to end the session. It costs nothing.
func Quit() *command.Transient {
	return command.PlayerAction("quit", func(s *types.State) (bool, error) {
		s.Quit = true
		return false, nil
	})
}

// Rest spends one move doing nothing.
func Rest() *command.Transient {
	return command.PlayerAction("rest", func(s *types.State) (bool, error) {
		state.Emit(s, "Time passes.")
		return true, nil
	})
}

// MoveBudget refills the player's moves at the start of every turn.
func MoveBudget() *command.Eternal {
	return command.NewEternal("move-budget", command.StartTurn, func(s *types.State) (bool, error) {
		state.ResetMoves(s)
		return false, nil
	})
}
