package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/crawlcore/config"
	"github.com/nathoo/crawlcore/engine"
	"github.com/nathoo/crawlcore/engine/command"
	"github.com/nathoo/crawlcore/engine/input"
	"github.com/nathoo/crawlcore/engine/state"
	"github.com/nathoo/crawlcore/types"
)

// maxLogLines caps the message log; older lines scroll away for good.
const maxLogLines = 500

// rawLine stores an unstyled log line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // echoed command bar input
	isSystem bool
}

// Model is the Bubble Tea model for the crawlcore TUI.
type Model struct {
	ctx    context.Context
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width       int
	height      int
	ready       bool
	trace       bool
	quitting    bool
	commandMode bool
	saveDir     string
}

// gameOutputMsg carries output into the Update loop.
type gameOutputMsg struct {
	input    string
	lines    []string
	isSystem bool
}

// New creates a TUI model wired to the given engine.
func New(ctx context.Context, eng *engine.Engine) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:     ctx,
		engine:  eng,
		input:   ti,
		history: NewHistory(100),
		saveDir: filepath.Join(config.Home(), "saves"),
	}
}

// Run starts the Bubble Tea program and blocks until the player quits.
func Run(ctx context.Context, eng *engine.Engine, saveDir string, trace bool) error {
	m := New(ctx, eng)
	if saveDir != "" {
		m.saveDir = saveDir
	}
	m.trace = trace
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init returns the command that produces the intro text.
func (m Model) Init() tea.Cmd {
	return m.initialOutput()
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		return gameOutputMsg{lines: m.engine.Intro()}
	}
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.logHeight()
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshViewport()
		return m, nil

	case gameOutputMsg:
		m = m.appendOutput(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.commandMode {
			return m.updateCommand(msg)
		}
		return m.updateGame(msg)
	}
	return m, nil
}

// updateGame handles a key press while the map has focus. Keys the mapper
// knows go straight to the engine.
func (m Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/", ":":
		m.commandMode = true
		m.input.SetValue("")
		return m, m.input.Focus()

	case "ctrl+s":
		m = m.appendOutput(gameOutputMsg{lines: m.cmdSave(""), isSystem: true})
		return m, nil

	case "ctrl+l":
		m = m.appendOutput(gameOutputMsg{lines: m.cmdLoad(""), isSystem: true})
		return m, nil

	case "ctrl+t":
		m = m.appendOutput(gameOutputMsg{lines: m.toggleTrace(), isSystem: true})
		return m, nil

	case "ctrl+u", "ctrl+d":
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, vpCmd
	}

	ev, ok := keyEvent(msg)
	if !ok {
		return m, nil
	}
	result, err := m.engine.Step(m.ctx, ev)
	return m.report(result, err)
}

// report appends a step's output to the log and quits when asked.
func (m Model) report(result types.Result, err error) (tea.Model, tea.Cmd) {
	lines := result.Output
	if err != nil {
		lines = append(lines, fmt.Sprintf("Error: %v", err))
	}
	if result.ShowMap {
		lines = append(lines, state.MapLines(m.engine.State)...)
	}
	if m.trace {
		lines = append(lines, m.formatTrace(result)...)
	}
	if len(lines) > 0 {
		m = m.appendOutput(gameOutputMsg{lines: lines})
	}
	if result.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// updateCommand handles a key press while the command bar is open.
func (m Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeCommand()
		return m, nil

	case tea.KeyEnter:
		return m.handleEnter()

	case tea.KeyUp:
		if prev, ok := m.history.Prev(); ok {
			m.input.SetValue(prev)
			m.input.CursorEnd()
		}
		return m, nil

	case tea.KeyDown:
		if next, ok := m.history.Next(); ok {
			m.input.SetValue(next)
			m.input.CursorEnd()
		} else {
			m.input.SetValue("")
			m.history.ResetCursor()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeCommand() {
	m.commandMode = false
	m.input.SetValue("")
	m.input.Blur()
	m.history.ResetCursor()
}

// handleEnter runs the command bar line as a meta-command.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.closeCommand()
	if line == "" {
		return m, nil
	}
	m.history.Push(line)

	output, quit := m.handleMeta("/" + line)
	m = m.appendOutput(gameOutputMsg{input: "/" + line, lines: output, isSystem: true})
	if quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// appendOutput adds lines to the log and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: msg.input, isInput: true})
	}
	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}
	if n := len(m.rawLines); n > maxLogLines {
		m.rawLines = append([]rawLine(nil), m.rawLines[n-maxLogLines:]...)
	}

	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := max(m.width, 10)
	styled := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		wrapped := wordWrap(rl.text, width)
		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// logHeight is what remains for the message log after the map, the status
// bar and the footer.
func (m Model) logHeight() int {
	return max(m.height-len(m.engine.State.Level.Rows)-2, 1)
}

// View renders map, message log, status bar and footer.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return renderMap(state.MapLines(m.engine.State)) + "\n" +
		m.viewport.View() + "\n" +
		m.renderStatusBar() + "\n" +
		m.renderFooter()
}

// keyEvent converts a terminal key press into an engine input event.
func keyEvent(msg tea.KeyMsg) (input.Event, bool) {
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) != 1 || msg.Alt {
			return input.Event{}, false
		}
		return input.Rune(msg.Runes[0]), true
	case tea.KeyUp:
		return input.Special(input.KeyUp), true
	case tea.KeyDown:
		return input.Special(input.KeyDown), true
	case tea.KeyLeft:
		return input.Special(input.KeyLeft), true
	case tea.KeyRight:
		return input.Special(input.KeyRight), true
	case tea.KeyHome:
		return input.Special(input.KeyHome), true
	case tea.KeyEnd:
		return input.Special(input.KeyEnd), true
	case tea.KeyPgUp:
		return input.Special(input.KeyPgUp), true
	case tea.KeyPgDown:
		return input.Special(input.KeyPgDown), true
	case tea.KeyEsc:
		return input.Special(input.KeyEscape), true
	}
	return input.Event{}, false
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(line string) ([]string, bool) {
	parts := strings.Fields(line)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/help":
		return cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/rest":
		result, err := m.engine.Rest(m.ctx)
		out := result.Output
		if err != nil {
			out = append(out, fmt.Sprintf("Error: %v", err))
		}
		return out, false

	case "/apply":
		return m.cmdApply(parts[1:]), false

	case "/cure":
		if arg == "" {
			return []string{"Usage: /cure <status>"}, false
		}
		result, ok := m.engine.Cure(arg)
		if !ok {
			return append(result.Output, fmt.Sprintf("%s is not active.", arg)), false
		}
		return append(result.Output, fmt.Sprintf("%s cured.", arg)), false

	case "/trace":
		return m.toggleTrace(), false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) toggleTrace() []string {
	m.trace = !m.trace
	if m.trace {
		return []string{"Trace output enabled."}
	}
	return []string{"Trace output disabled."}
}

func (m *Model) cmdApply(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: /apply <status> [turns]"}
	}
	turns := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return []string{fmt.Sprintf("Invalid turn count: %s", args[1])}
		}
		turns = n
	}
	result, err := m.engine.Apply(args[0], turns)
	if err != nil {
		return append(result.Output, fmt.Sprintf("Apply failed: %v", err))
	}
	return result.Output
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := m.engine.Save()
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	path := filepath.Join(m.saveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(m.saveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if err := m.engine.Load(data); err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	return []string{fmt.Sprintf("Game loaded from %s (turn %d).", name, m.engine.Driver.Turn())}
}

func cmdHelp() []string {
	return []string{
		"Keys:",
		"  h j k l        Move west, south, north, east (or the arrow keys)",
		"  y u b n        Move diagonally (or Home, PgUp, End, PgDn)",
		"  s              Show the map in the log",
		"  esc            Quit",
		"  / or :         Open the command bar",
		"  ctrl+s/ctrl+l  Quicksave / quickload",
		"  ctrl+t         Toggle trace output",
		"  ctrl+u/ctrl+d  Scroll the message log",
		"",
		"Commands:",
		"  /save [name]   Save game (default: quicksave)",
		"  /load [name]   Load game (default: quicksave)",
		"  /rest          Let one move pass",
		"  /apply <status> [turns]  Debug: apply a status effect",
		"  /cure <status> Debug: end a status effect",
		"  /state         Debug: dump current state",
		"  /trace         Toggle pending-command trace",
		"  /quit          Exit game",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.State
	output := []string{
		fmt.Sprintf("Turn: %d", m.engine.Driver.Turn()),
		fmt.Sprintf("Position: %d,%d", s.Player.Pos.X, s.Player.Pos.Y),
		m.engine.StatusLine(),
	}
	if len(s.Flags) > 0 {
		output = append(output, fmt.Sprintf("Flags: %v", s.Flags))
	}
	return output
}

func (m *Model) formatTrace(result types.Result) []string {
	var lines []string
	pending := m.engine.Pending()
	for _, p := range command.Phases() {
		entries := pending[p]
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name)
		}
		lines = append(lines, fmt.Sprintf("[trace] %s: %s", p, strings.Join(names, ", ")))
	}
	for _, e := range result.Events {
		lines = append(lines, fmt.Sprintf("[trace] event %s %v", e.Type, e.Data))
	}
	return lines
}

// viewportKeyMap keeps the viewport off the movement keys; only the
// control-key half pages scroll the log.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithDisabled()),
		PageUp:       key.NewBinding(key.WithDisabled()),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
