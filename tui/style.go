package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleNarrative = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// Map tiles.
	stylePlayer  = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	styleWall    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleFloor   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	styleFeature = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
)

// lineKind identifies the type of a log line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of log line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "You bump"),
		strings.HasPrefix(line, "You stumble"),
		strings.HasPrefix(line, "Error:"):
		return kindError
	default:
		return kindNarrative
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarrative.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}

// tileStyle picks the style for one map cell.
func tileStyle(r rune) lipgloss.Style {
	switch r {
	case '@':
		return stylePlayer
	case '#':
		return styleWall
	case '.', ' ':
		return styleFloor
	default:
		return styleFeature
	}
}

// renderMap colors map rows, grouping runs of the same tile into one
// styled segment.
func renderMap(rows []string) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for start < len(row) {
			r, size := utf8.DecodeRuneInString(row[start:])
			end := start + size
			for end < len(row) {
				next, n := utf8.DecodeRuneInString(row[end:])
				if next != r {
					break
				}
				end += n
			}
			b.WriteString(tileStyle(r).Render(row[start:end]))
			start = end
		}
	}
	return b.String()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || utf8.RuneCountInString(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wLen := utf8.RuneCountInString(word)
		switch {
		case i == 0:
			lineLen = wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			lineLen = wLen
		default:
			result.WriteString(" ")
			lineLen += 1 + wLen
		}
		result.WriteString(word)
	}
	return result.String()
}
