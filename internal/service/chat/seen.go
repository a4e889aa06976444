package chat

import "sync"

// seenLimit bounds how many recent turns a tracker remembers per session.
const seenLimit = 32

type seenKey struct {
	role    string
	content string
}

// SeenTracker remembers recently observed (role, content) pairs so a store
// echo of a locally appended turn can be recognized and skipped. Identity is
// content equality, not sequence position: the insert and its subscription
// echo are not ordered relative to each other.
type SeenTracker struct {
	mu    sync.Mutex
	order []seenKey
	keys  map[seenKey]struct{}
}

// NewSeenTracker returns an empty tracker.
func NewSeenTracker() *SeenTracker {
	return &SeenTracker{keys: make(map[seenKey]struct{})}
}

// Observe records a turn and reports whether it was already seen.
func (t *SeenTracker) Observe(role, content string) (alreadySeen bool) {
	key := seenKey{role: role, content: content}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.keys[key]; ok {
		return true
	}

	t.keys[key] = struct{}{}
	t.order = append(t.order, key)
	if len(t.order) > seenLimit {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.keys, oldest)
	}
	return false
}
