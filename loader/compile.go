// Package loader loads Lua game content into Go structs at startup.
// The Lua VM is discarded after loading: there is no Lua at runtime.
package loader

import (
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/types"
)

// rawStatus holds a status table before compilation.
type rawStatus struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// tableToStrings converts the array part of a Lua table to strings.
// A bare string is treated as a one-element list.
func tableToStrings(v lua.LValue) ([]string, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return []string{string(val)}, nil
	case *lua.LTable:
		var out []string
		for i := 1; i <= val.MaxN(); i++ {
			s, ok := val.RawGetInt(i).(lua.LString)
			if !ok {
				return nil, fmt.Errorf("element %d is %s, want string", i, val.RawGetInt(i).Type())
			}
			out = append(out, string(s))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string list, got %s", v.Type())
	}
}

// compile converts the collected Lua tables into Defs.
func compile(coll *collector) (*state.Defs, error) {
	defs := &state.Defs{
		Statuses: map[string]types.StatusDef{},
	}

	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs.Game = compileGame(coll.game)

	if coll.level == nil {
		return nil, fmt.Errorf("no Level{} definition found")
	}
	level, err := compileLevel(coll.level)
	if err != nil {
		return nil, fmt.Errorf("compiling level: %w", err)
	}
	defs.Level = level

	for _, raw := range coll.statuses {
		if _, dup := defs.Statuses[raw.id]; dup {
			return nil, fmt.Errorf("status %q defined more than once", raw.id)
		}
		st, err := compileStatus(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling status %s: %w", raw.id, err)
		}
		defs.Statuses[st.ID] = st
	}

	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:        getString(tbl, "title"),
		Author:       getString(tbl, "author"),
		Version:      getString(tbl, "version"),
		Intro:        getString(tbl, "intro"),
		Seed:         int64(getNumber(tbl, "seed")),
		TimesPerTurn: getInt(tbl, "times_per_turn"),
		HP:           getInt(tbl, "hp"),
	}
}

// compileLevel reads the map rows and triggers. The player starts on the
// '@' cell; coordinates are zero-based column and row.
func compileLevel(tbl *lua.LTable) (types.LevelDef, error) {
	rows, err := tableToStrings(tbl.RawGetString("rows"))
	if err != nil {
		return types.LevelDef{}, fmt.Errorf("rows: %w", err)
	}
	level := types.LevelDef{Rows: rows}

	for y, row := range rows {
		if x := strings.IndexRune(row, '@'); x >= 0 {
			level.Start = types.Point{X: len([]rune(row[:x])), Y: y}
			break
		}
	}

	if trig := getTable(tbl, "triggers"); trig != nil {
		for i := 1; i <= trig.MaxN(); i++ {
			t, ok := trig.RawGetInt(i).(*lua.LTable)
			if !ok {
				return types.LevelDef{}, fmt.Errorf("trigger %d is not a table", i)
			}
			level.Triggers = append(level.Triggers, types.Trigger{
				At:     types.Point{X: getInt(t, "x"), Y: getInt(t, "y")},
				Status: getString(t, "status"),
				Turns:  getInt(t, "turns"),
			})
		}
	}
	return level, nil
}

func compileStatus(raw rawStatus) (types.StatusDef, error) {
	tbl := raw.table
	expire, err := tableToStrings(tbl.RawGetString("expire"))
	if err != nil {
		return types.StatusDef{}, fmt.Errorf("expire: %w", err)
	}
	flag := getString(tbl, "flag")
	if flag == "" {
		flag = raw.id
	}
	return types.StatusDef{
		ID:           raw.id,
		Flag:         flag,
		Duration:     getInt(tbl, "duration"),
		Phase:        getString(tbl, "phase"),
		Apply:        getString(tbl, "apply"),
		Expire:       expire,
		TimesPerTurn: getInt(tbl, "times_per_turn"),
	}, nil
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
