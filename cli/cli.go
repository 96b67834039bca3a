// Package cli provides the plain line-mode front end: one or more key tokens
// per line, output formatting, and meta-command dispatch.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nathoo/crawlcore/config"
	"github.com/nathoo/crawlcore/engine"
	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/engine/input"
	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastLine  string // for "again" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Engine:  eng,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: filepath.Join(config.Home(), "saves"),
	}
}

// Run starts the game loop. It shows the intro and the map, then loops:
// prompt → input → dispatch → output. It returns when the player quits or
// input runs out.
func (c *CLI) Run(ctx context.Context) error {
	for _, line := range c.Engine.Intro() {
		c.printLine(line)
	}
	c.printMap()

	scanner := bufio.NewScanner(c.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(line, "#") && len(line) > 1 {
			continue
		}
		if c.EchoInput {
			c.printLine(line)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(line, "/") && len(line) > 1 {
			if c.handleMeta(ctx, line) {
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "again") {
			if c.lastLine == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			line = c.lastLine
		} else {
			c.lastLine = line
		}

		if c.playLine(ctx, line) {
			return nil
		}
	}
	return scanner.Err()
}

// playLine steps every key token on the line. Returns true on quit.
func (c *CLI) playLine(ctx context.Context, line string) bool {
	for _, token := range strings.Fields(line) {
		ev, ok := input.ParseEvent(token)
		if !ok {
			c.printSystem(fmt.Sprintf("Unknown key: %s. Type /help for the key list.", token))
			continue
		}
		result, err := c.Engine.Step(ctx, ev)
		if c.report(result, err) {
			return true
		}
		if result.Ignored {
			c.printSystem(fmt.Sprintf("Nothing is bound to %s.", token))
		}
	}
	return false
}

// report prints a step's output. Returns true if the game should exit.
func (c *CLI) report(result types.Result, err error) bool {
	c.printResult(result)
	if err != nil {
		c.printSystem(fmt.Sprintf("Error: %v", err))
	}
	if result.ShowMap {
		c.printMap()
	}
	if c.Trace {
		c.printTrace(result)
	}
	if result.Quit {
		c.printSystem("Goodbye.")
		return true
	}
	return false
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/map":
		c.printMap()

	case "/rest":
		return c.report(c.Engine.Rest(ctx))

	case "/apply":
		c.cmdApply(parts[1:])

	case "/cure":
		if arg == "" {
			c.printSystem("Usage: /cure <status>")
			break
		}
		result, ok := c.Engine.Cure(arg)
		c.printResult(result)
		if !ok {
			c.printSystem(fmt.Sprintf("%s is not active.", arg))
		} else {
			c.printSystem(fmt.Sprintf("%s cured.", arg))
		}

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdApply(args []string) {
	if len(args) == 0 {
		c.printSystem("Usage: /apply <status> [turns]")
		return
	}
	turns := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			c.printSystem(fmt.Sprintf("Invalid turn count: %s", args[1]))
			return
		}
		turns = n
	}
	result, err := c.Engine.Apply(args[0], turns)
	c.printResult(result)
	if err != nil {
		c.printSystem(fmt.Sprintf("Apply failed: %v", err))
	}
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := c.Engine.Save()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := filepath.Join(c.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(c.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	if err := c.Engine.Load(data); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (turn %d).", name, c.Engine.Driver.Turn()))
	c.printMap()
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Keys (one or more per line, separated by spaces):",
		"  h j k l        Move west, south, north, east",
		"  y u b n        Move diagonally (NW, NE, SW, SE)",
		"  s              Show the map",
		"  esc            Quit",
		"  Arrow keys, Home, End, PageUp, PageDown work by name (e.g. ArrowUp, pgdn)",
		"  again          Repeat your last line",
		"",
		"System:",
		"  /save [name]   Save game (default: quicksave)",
		"  /load [name]   Load game (default: quicksave)",
		"  /rest          Let one move pass",
		"  /map           Show the map",
		"  /apply <status> [turns]  Debug: apply a status effect",
		"  /cure <status> Debug: end a status effect",
		"  /state         Debug: dump current state",
		"  /trace         Toggle pending-command trace",
		"  /help          Show this help",
		"  /quit          Exit game",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	c.printSystem(fmt.Sprintf("Turn: %d", c.Engine.Driver.Turn()))
	c.printSystem(fmt.Sprintf("Position: %d,%d", s.Player.Pos.X, s.Player.Pos.Y))
	c.printSystem(c.Engine.StatusLine())
	if len(s.Flags) > 0 {
		c.printSystem(fmt.Sprintf("Flags: %v", s.Flags))
	}
	c.printSystem(fmt.Sprintf("RNG: seed %d position %d", c.Engine.RNG.Seed(), c.Engine.RNG.Position()))
}

func (c *CLI) printTrace(result types.Result) {
	pending := c.Engine.Pending()
	for _, p := range command.Phases() {
		entries := pending[p]
		c.printSystem(fmt.Sprintf("trace %s: %d pending", p, len(entries)))
		for _, e := range entries {
			if e.Kind == "timed" {
				c.printSystem(fmt.Sprintf("trace   %s (%s, %d left)", e.Name, e.Kind, e.Remaining))
				continue
			}
			c.printSystem(fmt.Sprintf("trace   %s (%s)", e.Name, e.Kind))
		}
	}
	for _, e := range result.Events {
		c.printSystem(fmt.Sprintf("trace event %s %v", e.Type, e.Data))
	}
}

func (c *CLI) printMap() {
	for _, line := range state.MapLines(c.Engine.State) {
		c.printLine(line)
	}
	c.printSystem(c.Engine.StatusLine())
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
