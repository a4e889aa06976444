package profile

import "sync"

// Store exposes profile retrieval for HTTP handlers and the companion service.
type Store interface {
	Get(id string) (Profile, bool)
	Put(p Profile)
}

// MemoryStore implements Store with an in-memory map, suitable for MVP.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Profile
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Profile)}
}

// Get looks up a profile by identifier.
func (s *MemoryStore) Get(id string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	return p, ok
}

// Put stores or replaces a profile.
func (s *MemoryStore) Put(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p
}
