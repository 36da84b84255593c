package history

import (
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/gallery"
)

// Dispatcher is the part of a gallery store used by Mount.
type Dispatcher[S any] interface {
	Dispatch(action gallery.Action) S
	Subscribe(l gallery.Listener[S]) func()
}

// Mount couples present mode of store to h:
//   - the current entry is replaced with {presenting: false}, so mounting adds no entry;
//   - every dispatched OpenPresentMode action pushes {presenting: true, activeIndex};
//   - a pop to a presenting entry calls open with its index, any other pop closes
//     present mode.
//
// open may be nil, in which case the store is sent OpenPresentMode directly. Opens
// caused by a pop do not push, so forward entries survive. The returned function
// detaches both directions.
func Mount[I gallery.Index, S any](h History[I], store Dispatcher[S], open func(I)) func() {
	if open == nil {
		open = func(i I) {
			store.Dispatch(gallery.OpenPresentMode[I]{Index: i})
		}
	}

	var restoring atomic.Bool

	h.ReplaceState(Entry[I]{Presenting: false})

	unsubscribe := store.Subscribe(func(a gallery.Action, _ S) {
		o, ok := a.(gallery.OpenPresentMode[I])
		if !ok || restoring.Load() {
			return
		}
		idx := o.Index
		klog.V(1).Infof("present mode opened at %+v, pushing history entry", idx)
		h.PushState(Entry[I]{Presenting: true, ActiveIndex: &idx})
	})

	unlisten := h.OnPopState(func(e Entry[I]) {
		if e.Presenting && e.ActiveIndex != nil {
			klog.V(1).Infof("history pop: reopening present mode at %+v", *e.ActiveIndex)
			restoring.Store(true)
			defer restoring.Store(false)
			open(*e.ActiveIndex)
			return
		}
		klog.V(1).Infof("history pop: closing present mode")
		store.Dispatch(gallery.ClosePresentMode{})
	})

	return func() {
		unsubscribe()
		unlisten()
	}
}
