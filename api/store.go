package api

import "sync"

// KeyValue is the shape of a shared context that Lua units can read and
// write through ctx:get and ctx:set.
type KeyValue interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Store is a KeyValue shared context. It is safe for concurrent use, so one
// Store may be reused across independent Init calls.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// Get returns the value stored under key and whether it was set.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Len returns the number of keys held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

var _ KeyValue = (*Store)(nil)
