// Package gallery holds the navigation state machines of the gallery views.
//
// Each flavor is a pure reducer: one action in, one new state out. Reducers are
// total; out-of-range requests are clamped or ignored rather than reported.
package gallery

import (
	"github.com/tstromberg/fotovy/pkg/media"
)

// NoIndex marks a flat gallery with nothing selected.
const NoIndex = -1

// MediaState is the state of a flat gallery navigated by index.
type MediaState struct {
	Media       []media.Item
	ActiveIndex int
	Presenting  bool
}

// NewMediaState returns a gallery over items with nothing selected.
func NewMediaState(items []media.Item) MediaState {
	return MediaState{Media: items, ActiveIndex: NoIndex}
}

// Active returns the selected item, if any.
func (s MediaState) Active() (media.Item, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Media) {
		return media.Item{}, false
	}
	return s.Media[s.ActiveIndex], true
}

// Find returns the index of the media item with the given ID, or NoIndex.
func (s MediaState) Find(id string) int {
	for i, it := range s.Media {
		if it.ID == id {
			return i
		}
	}
	return NoIndex
}

// ReduceMedia applies an action to a flat gallery.
func ReduceMedia(s MediaState, action Action) MediaState {
	switch a := action.(type) {
	case SelectImage[int]:
		s.ActiveIndex = clamp(a.Index, len(s.Media))
		return s

	case NextImage:
		n := len(s.Media)
		if n == 0 {
			return s
		}
		if s.ActiveIndex < 0 {
			s.ActiveIndex = 0
			return s
		}
		s.ActiveIndex = (s.ActiveIndex + 1) % n
		return s

	case PreviousImage:
		n := len(s.Media)
		if n == 0 {
			return s
		}
		if s.ActiveIndex <= 0 {
			s.ActiveIndex = n - 1
			return s
		}
		s.ActiveIndex--
		return s

	case OpenPresentMode[int]:
		s.ActiveIndex = clamp(a.Index, len(s.Media))
		s.Presenting = true
		return s

	case ClosePresentMode:
		s.Presenting = false
		return s

	case ReplaceMedia:
		return NewMediaState(a.Media)
	}

	return s
}

// clamp bounds i to [0, n-1], or NoIndex for an empty list.
func clamp(i, n int) int {
	if n == 0 {
		return NoIndex
	}
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
