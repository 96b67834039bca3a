package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted line with the game title on
// the left and the engine's vitals on the right.
func (m Model) renderStatusBar() string {
	left := " " + m.engine.Defs.Game.Title
	right := m.engine.StatusLine() + " "
	if m.trace {
		right = "TRACE  " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Too narrow for both halves: drop the title.
		left = ""
		gap = max(m.width-lipgloss.Width(right), 0)
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

// renderFooter shows the command bar while it is open, otherwise a key hint.
func (m Model) renderFooter() string {
	if m.commandMode {
		return m.input.View()
	}
	return styleHint.Render("hjkl/yubn move  s map  / command  esc quit")
}
