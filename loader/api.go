package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Level { rows = { ... }, triggers = { ... } }
	L.SetGlobal("Level", L.NewFunction(func(L *lua.LState) int {
		if coll.level != nil {
			L.RaiseError("Level{} defined more than once")
			return 0
		}
		coll.level = L.CheckTable(1)
		return 0
	}))

	// Status "id" { ... } is curried: Status("id") returns a function that takes a table.
	L.SetGlobal("Status", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.statuses = append(coll.statuses, rawStatus{id: id, table: tbl})
			return 0
		}))
		return 1
	}))
}

func registerHelpers(L *lua.LState) {
	// Trigger(x, y, "status" [, turns])
	L.SetGlobal("Trigger", L.NewFunction(func(L *lua.LState) int {
		x := L.CheckInt(1)
		y := L.CheckInt(2)
		status := L.CheckString(3)
		turns := L.OptInt(4, 0)
		tbl := L.NewTable()
		tbl.RawSetString("x", lua.LNumber(x))
		tbl.RawSetString("y", lua.LNumber(y))
		tbl.RawSetString("status", lua.LString(status))
		tbl.RawSetString("turns", lua.LNumber(turns))
		L.Push(tbl)
		return 1
	}))
}
