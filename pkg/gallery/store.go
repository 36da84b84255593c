package gallery

import (
	"sync"

	"k8s.io/klog/v2"
)

// Listener is notified after every dispatched action with the resulting state.
type Listener[S any] func(action Action, state S)

// Store owns a gallery state and applies actions to it strictly in dispatch order.
type Store[S any] struct {
	mu        sync.Mutex
	reduce    func(S, Action) S
	state     S
	listeners map[int]Listener[S]
	nextID    int

	// pending holds notifications not yet delivered; notifying is set while one
	// Dispatch call delivers them.
	pending   []notification[S]
	notifying bool
}

type notification[S any] struct {
	action Action
	state  S
}

// NewStore returns a store holding initial and transitioning it with reduce.
func NewStore[S any](initial S, reduce func(S, Action) S) *Store[S] {
	return &Store[S]{
		reduce:    reduce,
		state:     initial,
		listeners: map[int]Listener[S]{},
	}
}

// NewMediaStore returns a store for a flat gallery.
func NewMediaStore(s MediaState) *Store[MediaState] {
	return NewStore(s, ReduceMedia)
}

// NewAlbumStore returns a store for an album gallery.
func NewAlbumStore(s AlbumState) *Store[AlbumState] {
	return NewStore(s, ReduceAlbum)
}

// NewTimelineStore returns a store for the timeline gallery.
func NewTimelineStore(s TimelineState) *Store[TimelineState] {
	return NewStore(s, ReduceTimeline)
}

// State returns the current state.
func (st *Store[S]) State() S {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Dispatch applies action and notifies listeners. Listeners run outside the lock and
// may dispatch further actions. A Dispatch made while listeners are running, from a
// listener or from another goroutine, is queued: its listeners run after the current
// ones, so every listener sees states in dispatch order.
func (st *Store[S]) Dispatch(action Action) S {
	st.mu.Lock()
	st.state = st.reduce(st.state, action)
	state := st.state
	st.pending = append(st.pending, notification[S]{action: action, state: state})
	if st.notifying {
		st.mu.Unlock()
		return state
	}
	st.notifying = true

	for len(st.pending) > 0 {
		n := st.pending[0]
		st.pending = st.pending[1:]
		ls := make([]Listener[S], 0, len(st.listeners))
		for id := 0; id < st.nextID; id++ {
			if l, ok := st.listeners[id]; ok {
				ls = append(ls, l)
			}
		}
		st.mu.Unlock()

		klog.V(2).Infof("dispatch %T", n.action)
		for _, l := range ls {
			l(n.action, n.state)
		}
		st.mu.Lock()
	}
	st.notifying = false
	st.mu.Unlock()
	return state
}

// Subscribe registers l and returns a function that removes it.
func (st *Store[S]) Subscribe(l Listener[S]) func() {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := st.nextID
	st.nextID++
	st.listeners[id] = l
	return func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		delete(st.listeners, id)
	}
}
