// Package state provides an observable value that screens bind to.
package state

import (
	"sync"
)

// Store holds a value and notifies subscribers on every Set, in Set order.
// Callbacks run on the goroutine that calls Set and must not call Set themselves; use
// SubscribeOn with a dispatch.Loop when they touch single-threaded UI state.
type Store[T any] struct {
	mu     sync.Mutex
	notify sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)
	closed bool
}

// NewStore creates a store holding initial
func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and notifies subscribers. It is a no-op after Close.
func (s *Store[T]) Set(v T) {
	// notify serializes whole Set calls so subscribers observe values in order
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.value = v
	subs := make([]func(T), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn and returns a function that removes it
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return s.add(func(int) func(T) { return fn })
}

// Poster runs closures on a single update goroutine. *dispatch.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// SubscribeOn registers fn to run on p. A delivery still queued on p when the store
// is closed or fn is unsubscribed is dropped instead of run.
func (s *Store[T]) SubscribeOn(p Poster, fn func(T)) (unsubscribe func()) {
	return s.add(func(id int) func(T) {
		return func(v T) {
			p.Post(func() {
				if s.active(id) {
					fn(v)
				}
			})
		}
	})
}

func (s *Store[T]) add(build func(id int) func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	if !s.closed {
		s.subs[id] = build(id)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store[T]) active(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	_, ok := s.subs[id]
	return ok
}

// Close drops all subscribers; later Sets are ignored
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(T))
}

// Closed reports whether Close was called
func (s *Store[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
