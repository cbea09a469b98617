package kernel

import "sync"

// idHistory remembers the most recent distinct ids up to a fixed size.
type idHistory struct {
	mu    sync.Mutex
	size  int
	order []string
	index map[string]struct{}
}

func newIDHistory(size int) *idHistory {
	if size <= 0 {
		return nil
	}

	return &idHistory{
		size:  size,
		order: make([]string, 0, size),
		index: make(map[string]struct{}, size),
	}
}

// remember records id once; the oldest id is forgotten when full.
func (h *idHistory) remember(id string) {
	if h == nil || id == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.index[id]; exists {
		return
	}
	if len(h.order) == h.size {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.index, oldest)
	}
	h.order = append(h.order, id)
	h.index[id] = struct{}{}
}

// snapshot returns remembered ids from oldest to newest.
func (h *idHistory) snapshot() []string {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.order...)
}
