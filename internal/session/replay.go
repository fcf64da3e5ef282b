package session

// replayWindow remembers the most recent envelope IDs in a fixed ring.
type replayWindow struct {
	ids  map[string]struct{}
	ring []string
	next int
}

func newReplayWindow(size int) *replayWindow {
	return &replayWindow{
		ids:  make(map[string]struct{}, size),
		ring: make([]string, size),
	}
}

func (w *replayWindow) contains(id string) bool {
	_, ok := w.ids[id]
	return ok
}

func (w *replayWindow) add(id string) {
	if w.contains(id) {
		return
	}
	if old := w.ring[w.next]; old != "" {
		delete(w.ids, old)
	}
	w.ring[w.next] = id
	w.ids[id] = struct{}{}
	w.next = (w.next + 1) % len(w.ring)
}
