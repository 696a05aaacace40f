package console

// History keeps the last lines written to it, oldest first.
type History struct {
	items   []string
	maxSize int
}

// NewHistory creates an empty history of at most maxSize lines.
func NewHistory(maxSize int) *History {
	return &History{maxSize: maxSize}
}

// Add appends line, dropping the oldest one when full.
func (h *History) Add(line string) {
	if h.maxSize <= 0 {
		return
	}
	if len(h.items) == h.maxSize {
		h.items = h.items[1:]
	}
	h.items = append(h.items, line)
}

// Lines returns a copy of the kept lines.
func (h *History) Lines() []string {
	return append([]string(nil), h.items...)
}

// IsEmpty checks if nothing has been added.
func (h *History) IsEmpty() bool {
	return len(h.items) == 0
}
