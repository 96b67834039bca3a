package engine

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/engine/input"
	"github.com/nathoo/crawlcore/engine/save"
	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/engine/status"
	"github.com/nathoo/crawlcore/types"
)

// testDefs builds a small test game: one room with a confusion trap and a
// haste shrine.
func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title:        "Test Game",
			Version:      "1.0",
			Intro:        "You wake in a cold room.",
			Seed:         7,
			TimesPerTurn: 1,
			HP:           12,
		},
		Level: types.LevelDef{
			Rows: []string{
				"#######",
				"#@..^.#",
				"#....+#",
				"#######",
			},
			Start: types.Point{X: 1, Y: 1},
			Triggers: []types.Trigger{
				{At: types.Point{X: 4, Y: 1}, Status: "confusion", Turns: 3},
				{At: types.Point{X: 5, Y: 2}, Status: "haste"},
			},
		},
		Statuses: map[string]types.StatusDef{
			"confusion": {
				ID:       "confusion",
				Flag:     "confused",
				Duration: 19,
				Phase:    "end",
				Apply:    "You feel confused.",
				Expire:   []string{"You feel less confused now."},
			},
			"haste": {
				ID:           "haste",
				Flag:         "hasted",
				Duration:     4,
				Phase:        "end",
				Apply:        "You feel quick.",
				Expire:       []string{"You slow down."},
				TimesPerTurn: 2,
			},
		},
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(testDefs())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func step(t *testing.T, e *Engine, ev input.Event) types.Result {
	t.Helper()
	result, err := e.Step(context.Background(), ev)
	if err != nil {
		t.Fatalf("Step(%+v): %v", ev, err)
	}
	return result
}

func outputContains(output []string, substr string) bool {
	for _, line := range output {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestNew_SchedulesSetupCommands(t *testing.T) {
	e := newEngine(t)

	start := e.Driver.Pending(command.StartTurn)
	if len(start) != 1 || start[0].Name != "move-budget" || start[0].Kind != "eternal" {
		t.Errorf("START_TURN pending = %+v, want move-budget eternal", start)
	}
	main := e.Driver.Pending(command.MainTurn)
	if len(main) != 1 || main[0].Name != "triggers" {
		t.Errorf("MAIN_TURN pending = %+v, want triggers", main)
	}
	if e.State.RNG == nil {
		t.Error("state RNG not wired")
	}
}

func TestNew_SeedOverride(t *testing.T) {
	e, err := New(testDefs(), WithSeed(99))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.State.RNGSeed != 99 || e.RNG.Seed() != 99 {
		t.Errorf("seed = %d/%d, want 99", e.State.RNGSeed, e.RNG.Seed())
	}
}

func TestStep_MoveEndsTurn(t *testing.T) {
	e := newEngine(t)
	result := step(t, e, input.Rune('l'))

	if e.State.Player.Pos != (types.Point{X: 2, Y: 1}) {
		t.Errorf("pos = %+v, want (2,1)", e.State.Player.Pos)
	}
	if !result.Consumed || !result.TurnEnded || result.Turn != 1 {
		t.Errorf("result = %+v, want consumed turn 1", result)
	}
	if e.State.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1", e.State.TurnCount)
	}
}

func TestStep_AlternateKeyMatchesPrimary(t *testing.T) {
	a, b := newEngine(t), newEngine(t)
	step(t, a, input.Rune('j'))
	step(t, b, input.Special(input.KeyDown))

	if a.State.Player.Pos != b.State.Player.Pos {
		t.Errorf("j moved to %+v, ArrowDown to %+v", a.State.Player.Pos, b.State.Player.Pos)
	}
	if a.Driver.Turn() != b.Driver.Turn() {
		t.Errorf("turns differ: %d vs %d", a.Driver.Turn(), b.Driver.Turn())
	}
}

func TestStep_WallBump(t *testing.T) {
	e := newEngine(t)
	result := step(t, e, input.Rune('k'))

	if result.Consumed || result.TurnEnded {
		t.Errorf("wall bump consumed a turn: %+v", result)
	}
	if !outputContains(result.Output, "bump into a wall") {
		t.Errorf("output = %v", result.Output)
	}
	if e.Driver.Turn() != 0 {
		t.Errorf("Turn() = %d, want 0", e.Driver.Turn())
	}
}

func TestStep_ShowMapIsFree(t *testing.T) {
	e := newEngine(t)
	result := step(t, e, input.Rune('s'))

	if !result.ShowMap {
		t.Error("expected ShowMap")
	}
	if result.Consumed || result.TurnEnded || e.Driver.Turn() != 0 {
		t.Errorf("show map consumed a turn: %+v", result)
	}
	if e.State.ShowMap {
		t.Error("ShowMap should reset after the step")
	}
}

func TestStep_EscapeQuits(t *testing.T) {
	e := newEngine(t)
	result := step(t, e, input.Special(input.KeyEscape))

	if !result.Quit {
		t.Error("expected Quit")
	}
	if result.Consumed || e.Driver.Turn() != 0 {
		t.Errorf("quit consumed a turn: %+v", result)
	}
}

func TestStep_UnmappedIgnored(t *testing.T) {
	e := newEngine(t)
	result := step(t, e, input.Rune('q'))

	if !result.Ignored {
		t.Error("expected Ignored")
	}
	if e.Driver.InTurn() {
		t.Error("unmapped input should not open a turn")
	}
}

func TestStep_TriggerAppliesStatusOnEntry(t *testing.T) {
	e := newEngine(t)
	step(t, e, input.Rune('l'))
	step(t, e, input.Rune('l'))
	result := step(t, e, input.Rune('l'))

	if e.State.Player.Pos != (types.Point{X: 4, Y: 1}) {
		t.Fatalf("pos = %+v, want trap cell (4,1)", e.State.Player.Pos)
	}
	if !outputContains(result.Output, "You feel confused.") {
		t.Errorf("output = %v, want confusion message", result.Output)
	}
	if !state.GetFlag(e.State, "confused") {
		t.Error("confused flag not set")
	}
	if got := e.Status.Remaining("confusion"); got != 3 {
		t.Errorf("Remaining = %d, want 3", got)
	}

	// Standing on the trap does not re-apply it.
	if _, err := e.Rest(context.Background()); err != nil {
		t.Fatalf("Rest: %v", err)
	}
	if got := e.Status.Remaining("confusion"); got != 2 {
		t.Errorf("Remaining after rest = %d, want 2", got)
	}
}

func TestApply_HasteGivesTwoMoves(t *testing.T) {
	e := newEngine(t)
	result, err := e.Apply("haste", 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !outputContains(result.Output, "You feel quick.") {
		t.Errorf("output = %v", result.Output)
	}

	first := step(t, e, input.Rune('j'))
	if first.TurnEnded {
		t.Error("turn ended after the first hasted move")
	}
	second := step(t, e, input.Rune('l'))
	if !second.TurnEnded || second.Turn != 1 {
		t.Errorf("second move result = %+v, want turn 1 ended", second)
	}
}

func TestApply_Unknown(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Apply("petrified", 2); !errors.Is(err, status.ErrUnknownStatus) {
		t.Errorf("err = %v, want ErrUnknownStatus", err)
	}
}

func TestCure(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Apply("confusion", 5); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := e.Cure("confusion"); !ok {
		t.Fatal("Cure returned false")
	}
	if state.GetFlag(e.State, "confused") {
		t.Error("flag still set after cure")
	}
	if _, ok := e.Cure("confusion"); ok {
		t.Error("second Cure should return false")
	}
}

func TestSaveLoad_RoundTripsStatuses(t *testing.T) {
	e := newEngine(t)
	for i := 0; i < 3; i++ {
		step(t, e, input.Rune('l'))
	}
	if _, err := e.Rest(context.Background()); err != nil {
		t.Fatalf("Rest: %v", err)
	}

	data, err := e.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	e2 := newEngine(t)
	if err := e2.Load(data); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if e2.State.Player.Pos != e.State.Player.Pos {
		t.Errorf("pos = %+v, want %+v", e2.State.Player.Pos, e.State.Player.Pos)
	}
	if e2.Driver.Turn() != 4 || e2.State.TurnCount != 4 {
		t.Errorf("turn = %d/%d, want 4", e2.Driver.Turn(), e2.State.TurnCount)
	}
	if e2.RNG.Position() != e.RNG.Position() {
		t.Errorf("rng position = %d, want %d", e2.RNG.Position(), e.RNG.Position())
	}
	if got := e2.Status.Remaining("confusion"); got != 2 {
		t.Fatalf("restored Remaining = %d, want 2", got)
	}
	if !state.GetFlag(e2.State, "confused") {
		t.Error("restored flag not set")
	}

	var out []string
	for i := 0; i < 2; i++ {
		result, err := e2.Rest(context.Background())
		if err != nil {
			t.Fatalf("Rest: %v", err)
		}
		out = append(out, result.Output...)
	}
	if !outputContains(out, "You feel less confused now.") {
		t.Errorf("output = %v, want expiry message", out)
	}
	if state.GetFlag(e2.State, "confused") {
		t.Error("restored status did not expire")
	}
}

func TestLoad_RejectsOtherGame(t *testing.T) {
	e := newEngine(t)
	data, err := e.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	defs := testDefs()
	defs.Game.Title = "Another Game"
	other, err := New(defs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := other.Load(data); err == nil {
		t.Error("expected error loading a save from another game")
	}
	if err := other.Load([]byte(`{"format":9}`)); !errors.Is(err, save.ErrVersion) {
		t.Errorf("err = %v, want ErrVersion", err)
	}
}

func TestLoad_UnknownStatusLeavesGameUntouched(t *testing.T) {
	other := newEngine(t)
	for _, k := range []rune{'l', 'j', 'l'} {
		step(t, other, input.Rune(k))
	}
	data, err := other.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	var sd save.SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	sd.Statuses = append(sd.Statuses, status.Active{Name: "nosuch", Flag: "x", Remaining: 2})
	bad, err := json.Marshal(sd)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	e := newEngine(t)
	if _, err := e.Apply("haste", 3); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	step(t, e, input.Rune('l'))
	player := e.State.Player
	flags := map[string]bool{}
	for k, v := range e.State.Flags {
		flags[k] = v
	}
	active := e.Status.Active()
	turnNo, inTurn := e.Driver.Turn(), e.Driver.InTurn()

	if err := e.Load(bad); !errors.Is(err, status.ErrUnknownStatus) {
		t.Fatalf("err = %v, want ErrUnknownStatus", err)
	}
	if e.State.Player != player {
		t.Errorf("player = %+v, want unchanged %+v", e.State.Player, player)
	}
	if !reflect.DeepEqual(e.State.Flags, flags) {
		t.Errorf("flags = %v, want %v", e.State.Flags, flags)
	}
	if got := e.Status.Active(); !reflect.DeepEqual(got, active) {
		t.Errorf("active = %+v, want %+v", got, active)
	}
	if e.Driver.Turn() != turnNo || e.Driver.InTurn() != inTurn {
		t.Errorf("turn = %d/%v, want %d/%v", e.Driver.Turn(), e.Driver.InTurn(), turnNo, inTurn)
	}

	// The hasted turn carries on where it was.
	result := step(t, e, input.Rune('j'))
	if !result.TurnEnded || result.Turn != 1 {
		t.Errorf("second hasted move = %+v, want turn 1 ended", result)
	}
}

func TestStatusLine(t *testing.T) {
	e := newEngine(t)
	step(t, e, input.Rune('l'))
	if _, err := e.Apply("confusion", 4); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	line := e.StatusLine()
	for _, want := range []string{"HP 12/12", "Turn 1", "Moves 1/1", "confused(4)"} {
		if !strings.Contains(line, want) {
			t.Errorf("status line %q missing %q", line, want)
		}
	}
}

func TestIntro(t *testing.T) {
	e := newEngine(t)
	intro := e.Intro()
	if len(intro) != 2 || intro[0] != "Test Game" || intro[1] != "You wake in a cold room." {
		t.Errorf("Intro() = %v", intro)
	}
}
