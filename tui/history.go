// Package tui provides a Bubble Tea terminal UI for the crawlcore engine.
package tui

// History is a fixed-size ring of command lines with cursor-based
// navigation, used by the command bar.
type History struct {
	buf    []string
	head   int // index of the oldest entry
	size   int
	cursor int // -1 = not navigating, otherwise 0..size-1 counted from oldest
}

// NewHistory creates a history ring holding at most max entries.
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{buf: make([]string, max), cursor: -1}
}

// Len returns the number of stored entries.
func (h *History) Len() int { return h.size }

func (h *History) at(i int) string {
	return h.buf[(h.head+i)%len(h.buf)]
}

// Push adds a line. Consecutive duplicates are skipped; when full the
// oldest entry is overwritten.
func (h *History) Push(line string) {
	if h.size > 0 && h.at(h.size-1) == line {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.head+h.size)%len(h.buf)] = line
		h.size++
		return
	}
	h.buf[h.head] = line
	h.head = (h.head + 1) % len(h.buf)
}

// Prev steps towards older entries and stops at the oldest.
func (h *History) Prev() (string, bool) {
	if h.size == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = h.size - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.at(h.cursor), true
}

// Next steps towards newer entries. Returns ("", false) once past the newest.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= h.size {
		h.cursor = -1
		return "", false
	}
	return h.at(h.cursor), true
}

// ResetCursor leaves navigation mode.
func (h *History) ResetCursor() {
	h.cursor = -1
}
