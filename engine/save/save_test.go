package save

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/engine/status"
	"github.com/nathoo/crawlcore/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Version: "1.0",
		},
		Level: types.LevelDef{
			Rows:  []string{"#####", "#@..#", "#####"},
			Start: types.Point{X: 1, Y: 1},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	// Modify state.
	s.Player.Pos = types.Point{X: 3, Y: 1}
	s.Player.HP = 4
	s.Player.TimesPerTurn = 2
	s.Flags["confused"] = true
	s.TurnCount = 7
	s.RNGSeed = 42
	s.RNGPosition = 13
	statuses := []status.Active{{Name: "confusion", Flag: "confused", Remaining: 2}}

	data, err := Save(s, defs, statuses)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sd, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s2 := state.NewState(defs)
	s2.Messages = []types.Message{{Turn: 1, Text: "stale"}}
	ApplySave(s2, sd)

	if s2.Player.Pos != (types.Point{X: 3, Y: 1}) {
		t.Errorf("expected pos (3,1), got %+v", s2.Player.Pos)
	}
	if s2.Player.HP != 4 || s2.Player.TimesPerTurn != 2 {
		t.Errorf("player = %+v", s2.Player)
	}
	if !s2.Flags["confused"] {
		t.Error("expected confused flag true")
	}
	if s2.TurnCount != 7 {
		t.Errorf("expected turn 7, got %d", s2.TurnCount)
	}
	if s2.RNGSeed != 42 || s2.RNGPosition != 13 {
		t.Errorf("rng = %d@%d, want 42@13", s2.RNGSeed, s2.RNGPosition)
	}
	if len(s2.Messages) != 0 {
		t.Errorf("stale messages survived load: %v", s2.Messages)
	}
	if len(sd.Statuses) != 1 || sd.Statuses[0] != statuses[0] {
		t.Errorf("statuses = %+v, want %+v", sd.Statuses, statuses)
	}
}

func TestSave_ProducesValidJSON(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	data, err := Save(s, defs, nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !json.Valid(data) {
		t.Fatal("Save output is not valid JSON")
	}

	var raw map[string]any
	json.Unmarshal(data, &raw)
	if raw["version"] != "1.0" {
		t.Errorf("expected version '1.0', got %v", raw["version"])
	}
	if raw["game"] != "Test Game" {
		t.Errorf("expected game 'Test Game', got %v", raw["game"])
	}
	if raw["format"] != float64(FormatVersion) {
		t.Errorf("expected format %d, got %v", FormatVersion, raw["format"])
	}
}

func TestLoad_MissingOptionalFields(t *testing.T) {
	data := []byte(`{"format":1,"version":"1.0","game":"Test","turn":0,"player":{"HP":3}}`)

	sd, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sd.Flags == nil {
		t.Error("expected non-nil flags")
	}
	if sd.Statuses == nil {
		t.Error("expected non-nil statuses")
	}
	if sd.Player.HP != 3 {
		t.Errorf("expected HP 3, got %d", sd.Player.HP)
	}
}

func TestLoad_RejectsOtherFormats(t *testing.T) {
	for _, data := range []string{
		`{"version":"1.0","game":"Test"}`,
		`{"format":2,"version":"1.0","game":"Test"}`,
	} {
		if _, err := Load([]byte(data)); !errors.Is(err, ErrVersion) {
			t.Errorf("Load(%s) err = %v, want ErrVersion", data, err)
		}
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	if _, err := Load([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
