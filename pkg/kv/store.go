// Package kv provides a generic thread-safe in-memory table.
package kv

import "sync"

// Store is a thread-safe map keyed by K.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// New creates an empty store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{data: make(map[K]V)}
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Delete removes a key and reports whether it existed.
func (s *Store[K, V]) Delete(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok
}

// Update applies fn to the current value of key under the write lock. fn
// receives the zero value and false for a missing key. When fn returns
// keep=false the key is deleted.
func (s *Store[K, V]) Update(key K, fn func(cur V, ok bool) (next V, keep bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[key]
	next, keep := fn(cur, ok)
	if keep {
		s.data[key] = next
	} else {
		delete(s.data, key)
	}
}

// Filter returns the values for which keep returns true, in no
// particular order.
func (s *Store[K, V]) Filter(keep func(V) bool) []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]V, 0, len(s.data))
	for _, v := range s.data {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Find returns the first value for which match returns true.
func (s *Store[K, V]) Find(match func(V) bool) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.data {
		if match(v) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Len returns the number of items in the store.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
