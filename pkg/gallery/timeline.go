package gallery

import (
	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

// TimelineIndex addresses one media item of a timeline: day, album within the day,
// media within the album. The components are either all -1 or all >= 0.
type TimelineIndex struct {
	Date  int `json:"date"`
	Album int `json:"album"`
	Media int `json:"media"`
}

// NoTimelineIndex marks a timeline with nothing selected.
var NoTimelineIndex = TimelineIndex{Date: -1, Album: -1, Media: -1}

// None reports whether the index is the nothing-selected sentinel.
func (i TimelineIndex) None() bool {
	return i.Date < 0 || i.Album < 0 || i.Media < 0
}

// TimelineState is the state of the nested timeline gallery.
type TimelineState struct {
	Groups      []timeline.Group
	ActiveIndex TimelineIndex
	Presenting  bool
}

// NewTimelineState returns a timeline over groups with nothing selected.
func NewTimelineState(groups []timeline.Group) TimelineState {
	return TimelineState{Groups: groups, ActiveIndex: NoTimelineIndex}
}

// Active returns the selected item, if the index addresses one.
func (s TimelineState) Active() (media.Item, bool) {
	i := s.ActiveIndex
	if i.None() || i.Date >= len(s.Groups) {
		return media.Item{}, false
	}
	albums := s.Groups[i.Date].Albums
	if i.Album >= len(albums) || i.Media >= len(albums[i.Album].Media) {
		return media.Item{}, false
	}
	return albums[i.Album].Media[i.Media], true
}

// Find returns the index of the media item with the given ID.
func (s TimelineState) Find(id string) (TimelineIndex, bool) {
	for d, g := range s.Groups {
		for a, album := range g.Albums {
			for i, it := range album.Media {
				if it.ID == id {
					return TimelineIndex{Date: d, Album: a, Media: i}, true
				}
			}
		}
	}
	return NoTimelineIndex, false
}

// ReduceTimeline applies an action to the timeline gallery.
func ReduceTimeline(s TimelineState, action Action) TimelineState {
	switch a := action.(type) {
	case SelectImage[TimelineIndex]:
		s.ActiveIndex = a.Index
		return s

	case NextImage:
		if next, ok := s.next(); ok {
			s.ActiveIndex = next
		}
		return s

	case PreviousImage:
		if prev, ok := s.previous(); ok {
			s.ActiveIndex = prev
		}
		return s

	case OpenPresentMode[TimelineIndex]:
		s.ActiveIndex = a.Index
		s.Presenting = true
		return s

	case ClosePresentMode:
		s.Presenting = false
		return s

	case ReplaceTimelineGroups:
		return NewTimelineState(a.Groups)
	}

	return s
}

// valid reports whether i addresses an existing media item.
func (s TimelineState) valid(i TimelineIndex) bool {
	if i.None() || i.Date >= len(s.Groups) {
		return false
	}
	albums := s.Groups[i.Date].Albums
	return i.Album < len(albums) && i.Media < len(albums[i.Album].Media)
}

// next walks media, then album, then date. It returns false at the absolute end.
func (s TimelineState) next() (TimelineIndex, bool) {
	i := s.ActiveIndex
	if !s.valid(i) {
		return i, false
	}

	albums := s.Groups[i.Date].Albums
	if i.Media+1 < len(albums[i.Album].Media) {
		return TimelineIndex{Date: i.Date, Album: i.Album, Media: i.Media + 1}, true
	}

	for a := i.Album + 1; a < len(albums); a++ {
		if len(albums[a].Media) > 0 {
			return TimelineIndex{Date: i.Date, Album: a, Media: 0}, true
		}
	}

	for d := i.Date + 1; d < len(s.Groups); d++ {
		for a, album := range s.Groups[d].Albums {
			if len(album.Media) > 0 {
				return TimelineIndex{Date: d, Album: a, Media: 0}, true
			}
		}
	}

	return i, false
}

// previous is the mirror image of next. It returns false at the absolute start.
func (s TimelineState) previous() (TimelineIndex, bool) {
	i := s.ActiveIndex
	if !s.valid(i) {
		return i, false
	}

	if i.Media > 0 {
		return TimelineIndex{Date: i.Date, Album: i.Album, Media: i.Media - 1}, true
	}

	albums := s.Groups[i.Date].Albums
	for a := i.Album - 1; a >= 0; a-- {
		if n := len(albums[a].Media); n > 0 {
			return TimelineIndex{Date: i.Date, Album: a, Media: n - 1}, true
		}
	}

	for d := i.Date - 1; d >= 0; d-- {
		as := s.Groups[d].Albums
		for a := len(as) - 1; a >= 0; a-- {
			if n := len(as[a].Media); n > 0 {
				return TimelineIndex{Date: d, Album: a, Media: n - 1}, true
			}
		}
	}

	return i, false
}
