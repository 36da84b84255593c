package gallery

import (
	"github.com/tstromberg/fotovy/pkg/media"
)

// AlbumState is a flat gallery whose contents can be filtered to favorites.
// Refetch is raised when the loaded media may no longer match the filter; the
// owner of the query clears it by replacing the media.
type AlbumState struct {
	MediaState
	OnlyFavorites bool
	Refetch       bool
}

// NewAlbumState returns an album gallery over items with nothing selected.
func NewAlbumState(items []media.Item, onlyFavorites bool) AlbumState {
	return AlbumState{MediaState: NewMediaState(items), OnlyFavorites: onlyFavorites}
}

// ReduceAlbum applies an action to an album gallery.
func ReduceAlbum(s AlbumState, action Action) AlbumState {
	switch a := action.(type) {
	case ToggleFavorite:
		if a.Index < 0 || a.Index >= len(s.Media) {
			return s
		}
		item := s.Media[a.Index]
		if item.Favorite == nil {
			return s
		}
		items := append([]media.Item(nil), s.Media...)
		items[a.Index] = item.WithFavorite(!item.IsFavorite())
		s.Media = items
		if s.OnlyFavorites {
			s.Refetch = true
		}
		return s

	case SetOnlyFavorites:
		if a.Only == s.OnlyFavorites {
			return s
		}
		s.OnlyFavorites = a.Only
		s.Refetch = true
		return s

	case ReplaceMedia:
		s.MediaState = ReduceMedia(s.MediaState, a)
		s.Refetch = false
		return s
	}

	s.MediaState = ReduceMedia(s.MediaState, action)
	return s
}
