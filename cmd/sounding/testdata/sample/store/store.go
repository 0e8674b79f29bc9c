package store

import "sync"

// Store is a guarded map.
type Store struct {
	mu   sync.Mutex
	data map[string]int
}

// Put stores v under k.
func (s *Store) Put(k string, v int) {
	s.mu.Lock()
	s.data[k] = v
}

// Get returns the value stored under k.
func (s *Store) Get(k string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[k]
}

// Fetch is Get under another name.
func (s *Store) Fetch(k string) int {
	return s.Get(k)
}
