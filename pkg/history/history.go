// Package history mirrors gallery present mode into a navigation history so that
// going back cancels present mode.
package history

import (
	"sync"

	"github.com/tstromberg/fotovy/pkg/gallery"
)

// Entry is the state stored with a history entry.
type Entry[I gallery.Index] struct {
	Presenting  bool `json:"presenting"`
	ActiveIndex *I   `json:"activeIndex,omitempty"`
}

// History is the subset of a browser-like history used by Sync.
type History[I gallery.Index] interface {
	ReplaceState(e Entry[I])
	PushState(e Entry[I])
	// OnPopState registers fn for back/forward navigation and returns a function removing it.
	OnPopState(fn func(Entry[I])) func()
}

// Stack is an in-memory History with back and forward navigation.
type Stack[I gallery.Index] struct {
	mu        sync.Mutex
	entries   []Entry[I]
	cursor    int
	listeners map[int]func(Entry[I])
	nextID    int
}

// NewStack returns a history holding a single empty entry.
func NewStack[I gallery.Index]() *Stack[I] {
	return &Stack[I]{
		entries:   []Entry[I]{{}},
		listeners: map[int]func(Entry[I]){},
	}
}

// ReplaceState overwrites the current entry.
func (s *Stack[I]) ReplaceState(e Entry[I]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.cursor] = e
}

// PushState adds an entry after the current one, dropping any forward entries.
func (s *Stack[I]) PushState(e Entry[I]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries[:s.cursor+1], e)
	s.cursor = len(s.entries) - 1
}

// Current returns the current entry.
func (s *Stack[I]) Current() Entry[I] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[s.cursor]
}

// Len returns the number of entries.
func (s *Stack[I]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Back moves to the previous entry and emits a pop event. It returns false when
// there is nothing to go back to.
func (s *Stack[I]) Back() bool {
	return s.move(-1)
}

// Forward moves to the next entry and emits a pop event.
func (s *Stack[I]) Forward() bool {
	return s.move(1)
}

func (s *Stack[I]) move(delta int) bool {
	s.mu.Lock()
	to := s.cursor + delta
	if to < 0 || to >= len(s.entries) {
		s.mu.Unlock()
		return false
	}
	s.cursor = to
	e := s.entries[to]
	ls := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range ls {
		fn(e)
	}
	return true
}

func (s *Stack[I]) snapshotListeners() []func(Entry[I]) {
	ls := make([]func(Entry[I]), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			ls = append(ls, fn)
		}
	}
	return ls
}

// OnPopState registers fn for back/forward navigation.
func (s *Stack[I]) OnPopState(fn func(Entry[I])) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
