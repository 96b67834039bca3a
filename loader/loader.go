package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sagikazarmark/slog-shim"
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/crawlcore/engine/state"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game     *lua.LTable
	level    *lua.LTable
	statuses []rawStatus
}

// Option configures Load.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the logger that receives load progress and Lua print output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// unsafeGlobals are removed from every VM before game files run.
var unsafeGlobals = []string{
	"dofile", "loadfile", "load", "loadstring",
	"rawset", "rawget", "rawequal",
	"collectgarbage",
}

// Load reads all .lua files from dir, compiles them into game definitions,
// validates references, and returns the immutable Defs. The Lua VM is
// discarded after loading.
func Load(dir string, opts ...Option) (*state.Defs, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.With("source", "loader", "dir", dir)

	files, err := discover(dir)
	if err != nil {
		return nil, err
	}

	coll := &collector{}
	L := newVM(coll, log)
	defer L.Close()

	for _, f := range files {
		log.Debug("executing game file", "file", f)
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	defs, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling game data: %w", err)
	}
	if err := validate(defs); err != nil {
		return nil, err
	}

	log.Info("game data compiled",
		"files", len(files),
		"statuses", len(defs.Statuses),
		"triggers", len(defs.Level.Triggers),
	)
	return defs, nil
}

// discover lists the .lua files of dir in execution order.
func discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading game directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// game.lua first, rest alphabetical.
	return sortedLuaFiles(files), nil
}

// newVM creates a sandboxed VM with the game API registered against coll.
// Lua print goes to the logger; the terminal belongs to the front end.
func newVM(coll *collector, log *slog.Logger) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		log.Debug("lua print", "text", strings.Join(parts, " "))
		return 0
	}))
	registerAPI(L, coll)
	return L
}

// openSafeLibs opens only the safe subset of Lua standard libraries:
// base, table, string and math. No os, io or package.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	// Remove math.randomseed to preserve determinism.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}
