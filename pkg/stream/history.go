package stream

// History is the terminal's list of submitted input lines, oldest first, with a cursor for
// stepping through them. The cursor is -1 when nothing is selected.
type History struct {
	entries []string
	index   int
}

func NewHistory() *History {
	return &History{index: -1}
}

// Add records a submitted line. Empty lines are not recorded. The selection is always reset.
func (h *History) Add(line string) {
	h.index = -1

	if line == "" {
		return
	}

	h.entries = append(h.entries, line)
}

// Previous moves toward older entries. It stays on the oldest entry once reached.
func (h *History) Previous() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}

	switch {
	case h.index == -1:
		h.index = len(h.entries) - 1
	case h.index > 0:
		h.index--
	}

	return h.entries[h.index], true
}

// Next moves toward newer entries. Stepping forward from the newest entry clears the selection
// and returns false.
func (h *History) Next() (string, bool) {
	if h.index == -1 {
		return "", false
	}

	if h.index >= len(h.entries)-1 {
		h.index = -1
		return "", false
	}

	h.index++

	return h.entries[h.index], true
}

// Selected reports the cursor position, -1 when nothing is selected.
func (h *History) Selected() int {
	return h.index
}

func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}
