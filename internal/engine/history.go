package engine

import "sync"

// DefaultHistoryCapacity bounds the decisions kept for reporting.
const DefaultHistoryCapacity = 50

// History keeps the most recent decisions, dropping the oldest first.
type History struct {
	mu       sync.RWMutex
	entries  []Decision
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		entries:  make([]Decision, 0, capacity),
		capacity: capacity,
	}
}

// Append adds d, evicting the oldest entry when full.
func (h *History) Append(d Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.capacity-1]
	}
	h.entries = append(h.entries, d)
}

// Recent returns up to n decisions, oldest first. n <= 0 returns all.
func (h *History) Recent(n int) []Decision {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if n > 0 && n < len(h.entries) {
		start = len(h.entries) - n
	}
	out := make([]Decision, len(h.entries)-start)
	copy(out, h.entries[start:])
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) Capacity() int {
	return h.capacity
}
