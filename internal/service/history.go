package service

// History keeps the most recent generated values, newest first.
// It is not safe for concurrent use; Generator guards it.
type History struct {
	entries []string
	size    int
}

// NewHistory creates an empty history holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{entries: make([]string, 0, size), size: size}
}

// Push prepends value, evicting the oldest entry when full. No deduplication.
func (h *History) Push(value string) {
	if len(h.entries) < h.size {
		h.entries = append(h.entries, "")
	}
	copy(h.entries[1:], h.entries[:len(h.entries)-1])
	h.entries[0] = value
}

// At returns the i-th most recent entry.
func (h *History) At(i int) (string, bool) {
	if i < 0 || i >= len(h.entries) {
		return "", false
	}
	return h.entries[i], true
}

func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the entries, newest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
