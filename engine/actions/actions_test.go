package actions

import (
	"testing"

	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/types"
)

// fixedDice always rolls the same face.
type fixedDice int

func (f fixedDice) Roll(sides int) int { return int(f) }
func (f fixedDice) Index(n int) int { return int(f) - 1 }

func testState() *types.State {
	return &types.State{
		Player: types.Player{Pos: types.Point{X: 1, Y: 1}, TimesPerTurn: 1},
		Level: types.Level{Rows: []string{
			"#####",
			"#...#",
			"#...#",
			"#####",
		}},
		Flags: map[string]bool{},
	}
}

func TestMove_Step(t *testing.T) {
	s := testState()
	ok, err := Move(types.Point{X: 1, Y: 0}).Execute(s)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ok {
		t.Error("a successful step should consume the move")
	}
	if s.Player.Pos != (types.Point{X: 2, Y: 1}) {
		t.Errorf("pos = %+v, want (2,1)", s.Player.Pos)
	}
	if len(s.Events) != 1 || s.Events[0].Type != "player_moved" {
		t.Errorf("events = %+v, want one player_moved", s.Events)
	}
}

func TestMove_WallBumpIsFree(t *testing.T) {
	s := testState()
	ok, err := Move(types.Point{X: -1, Y: 0}).Execute(s)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ok {
		t.Error("bumping a wall should not consume the move")
	}
	if s.Player.Pos != (types.Point{X: 1, Y: 1}) {
		t.Errorf("player moved into a wall: %+v", s.Player.Pos)
	}
	if len(s.Messages) != 1 || s.Messages[0].Text != "You bump into a wall." {
		t.Errorf("messages = %+v", s.Messages)
	}
}

func TestMove_ConfusedUsesRandomDirection(t *testing.T) {
	s := testState()
	state.SetFlag(s, ConfusedFlag, true)
	s.RNG = fixedDice(8) // Directions[7] = (1,1)

	ok, err := Move(types.Point{X: -1, Y: 0}).Execute(s)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ok {
		t.Error("confused step should consume the move")
	}
	if s.Player.Pos != (types.Point{X: 2, Y: 2}) {
		t.Errorf("pos = %+v, want (2,2)", s.Player.Pos)
	}
}

func TestMove_ConfusedStumbleCosts(t *testing.T) {
	s := testState()
	state.SetFlag(s, ConfusedFlag, true)
	s.RNG = fixedDice(3) // Directions[2] = (0,-1), a wall from (1,1)

	ok, err := Move(types.Point{X: 1, Y: 0}).Execute(s)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ok {
		t.Error("stumbling into a wall while confused should consume the move")
	}
	if len(s.Messages) != 1 || s.Messages[0].Text != "You stumble into a wall." {
		t.Errorf("messages = %+v", s.Messages)
	}
}

func TestFreeActions(t *testing.T) {
	s := testState()

	ok, err := ShowMap().Execute(s)
	if err != nil || ok || !s.ShowMap {
		t.Errorf("ShowMap = (%v, %v) ShowMap=%v", ok, err, s.ShowMap)
	}
	ok, err = Quit().Execute(s)
	if err != nil || ok || !s.Quit {
		t.Errorf("Quit = (%v, %v) Quit=%v", ok, err, s.Quit)
	}
}

func TestRest(t *testing.T) {
	s := testState()
	ok, err := Rest().Execute(s)
	if err != nil || !ok {
		t.Errorf("Rest = (%v, %v), want (true, nil)", ok, err)
	}
	if len(s.Messages) != 1 || s.Messages[0].Text != "Time passes." {
		t.Errorf("messages = %+v", s.Messages)
	}
}

func TestMoveBudget(t *testing.T) {
	s := testState()
	s.Player.TimesPerTurn = 2

	ok, err := MoveBudget().Execute(s)
	if err != nil || ok {
		t.Errorf("MoveBudget = (%v, %v), want (false, nil)", ok, err)
	}
	if s.Player.MovesLeft != 2 {
		t.Errorf("MovesLeft = %d, want 2", s.Player.MovesLeft)
	}

	s.Player.TimesPerTurn = 0
	MoveBudget().Execute(s)
	if s.Player.MovesLeft != 1 {
		t.Errorf("MovesLeft = %d, want 1 for an unset budget", s.Player.MovesLeft)
	}
}
