package moderator

// DedupWindow remembers the last N comment ids seen. The comment stream may
// redeliver up to ~100 already-seen items after a reconnect, so the window
// only needs to cover that burst, not the full history.
type DedupWindow struct {
	capacity int
	ring     []string
	next     int
	seen     map[string]bool
}

// NewDedupWindow creates a window remembering up to capacity ids.
func NewDedupWindow(capacity int) *DedupWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &DedupWindow{
		capacity: capacity,
		ring:     make([]string, 0, capacity),
		seen:     make(map[string]bool, capacity),
	}
}

// Seen records id and reports whether it was already in the window.
func (w *DedupWindow) Seen(id string) bool {
	if w.seen[id] {
		return true
	}
	if len(w.ring) < w.capacity {
		w.ring = append(w.ring, id)
	} else {
		delete(w.seen, w.ring[w.next])
		w.ring[w.next] = id
		w.next = (w.next + 1) % w.capacity
	}
	w.seen[id] = true
	return false
}

// Len returns the number of ids currently remembered.
func (w *DedupWindow) Len() int {
	return len(w.ring)
}
