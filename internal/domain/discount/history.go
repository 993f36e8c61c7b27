package discount

import "sync"

// History is the ordered, append-only list of order ids seen during a run.
type History struct {
	mu  sync.Mutex
	ids []string
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// Advance returns the most recent id recorded before this call, then appends
// id. The read and the append happen under one lock so no other caller can
// slip in between them.
func (h *History) Advance(id string) (prev string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.ids); n > 0 {
		prev, ok = h.ids[n-1], true
	}
	h.ids = append(h.ids, id)
	return prev, ok
}

// Last returns the most recently recorded id.
func (h *History) Last() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.ids) == 0 {
		return "", false
	}
	return h.ids[len(h.ids)-1], true
}

// Len returns the number of recorded ids.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ids)
}

// IDs returns a copy of the recorded ids in processing order.
func (h *History) IDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}
