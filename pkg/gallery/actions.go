package gallery

import (
	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

// Index is the cursor type of a gallery flavor: an int for flat galleries,
// a TimelineIndex for the timeline.
type Index interface {
	int | TimelineIndex
}

// Action is a state transition request. The set of actions is closed.
type Action interface {
	isAction()
}

// SelectImage moves the cursor to Index.
type SelectImage[I Index] struct {
	Index I
}

// NextImage moves the cursor forward.
type NextImage struct{}

// PreviousImage moves the cursor back.
type PreviousImage struct{}

// OpenPresentMode shows the item at Index full screen.
type OpenPresentMode[I Index] struct {
	Index I
}

// ClosePresentMode returns to the overview, keeping the cursor.
type ClosePresentMode struct{}

// ReplaceMedia swaps the items of a flat gallery and clears its cursor.
type ReplaceMedia struct {
	Media []media.Item
}

// ReplaceTimelineGroups swaps the days of a timeline and clears its cursor.
type ReplaceTimelineGroups struct {
	Groups []timeline.Group
}

// ToggleFavorite flips the favorite flag of the item at Index.
type ToggleFavorite struct {
	Index int
}

// SetOnlyFavorites filters an album gallery to favorites.
type SetOnlyFavorites struct {
	Only bool
}

func (SelectImage[I]) isAction() {}
func (NextImage) isAction() {}
func (PreviousImage) isAction() {}
func (OpenPresentMode[I]) isAction() {}
func (ClosePresentMode) isAction() {}
func (ReplaceMedia) isAction() {}
func (ReplaceTimelineGroups) isAction() {}
func (ToggleFavorite) isAction() {}
func (SetOnlyFavorites) isAction() {}
