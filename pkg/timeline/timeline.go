// Package timeline groups a date ordered stream of album rows into days.
package timeline

import (
	"fmt"
	"time"

	"github.com/tstromberg/fotovy/pkg/media"
)

// Row is one server-ordered timeline entry: the media of one album on one date.
// Rows arrive sorted by date descending with rows of the same album adjacent.
type Row struct {
	Album      media.Album  `json:"album"`
	Date       time.Time    `json:"date"`
	Media      []media.Item `json:"media"`
	MediaTotal int          `json:"mediaTotal"`
}

// GroupAlbum is the media of one album within a day.
type GroupAlbum struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Media []media.Item `json:"media"`
}

// Group is one day of the timeline.
type Group struct {
	Date   time.Time    `json:"date"`
	Albums []GroupAlbum `json:"albums"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Day returns t with the time of day zeroed, in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses an ISO-8601 date or timestamp.
func ParseDate(s string) (time.Time, error) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: not an ISO-8601 date", s)
}

// Convert groups rows by day and then by album in a single pass.
// Only adjacent rows are merged: the same album appearing twice in one day with
// another album in between yields two album entries.
func Convert(rows []Row) []Group {
	groups := []Group{}

	var current *GroupAlbum
	var currentDay time.Time
	var dayAlbums []GroupAlbum

	closeDay := func() {
		dayAlbums = append(dayAlbums, *current)
		groups = append(groups, Group{Date: currentDay, Albums: dayAlbums})
		dayAlbums = nil
	}

	start := func(r Row) {
		current = &GroupAlbum{
			ID:    r.Album.ID,
			Title: r.Album.Title,
			Media: append([]media.Item{}, r.Media...),
		}
		currentDay = Day(r.Date)
	}

	for _, r := range rows {
		if current == nil {
			start(r)
			continue
		}

		day := Day(r.Date)
		switch {
		case !day.Equal(currentDay):
			closeDay()
			start(r)
		case r.Album.ID != current.ID:
			dayAlbums = append(dayAlbums, *current)
			start(r)
		default:
			current.Media = append(current.Media, r.Media...)
		}
	}

	if current != nil {
		closeDay()
	}
	return groups
}

// Len returns the number of media items across all groups.
func Len(groups []Group) int {
	n := 0
	for _, g := range groups {
		for _, a := range g.Albums {
			n += len(a.Media)
		}
	}
	return n
}

// Fragmented returns the (day, album) pairs that appear more than once within a day,
// which happens when the upstream ordering interleaves albums.
func Fragmented(groups []Group) []string {
	var out []string
	for _, g := range groups {
		seen := map[string]int{}
		for _, a := range g.Albums {
			seen[a.ID]++
			if seen[a.ID] == 2 {
				out = append(out, fmt.Sprintf("%s/%s", g.Date.Format("2006-01-02"), a.ID))
			}
		}
	}
	return out
}
