// Package media describes the photos and videos shown by a gallery.
package media

// Type is the kind of a media item.
type Type string

const (
	Photo Type = "Photo"
	Video Type = "Video"
)

// URL describes one rendition of a media item.
type URL struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Item represents a photo or video as delivered by the library.
type Item struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Title     string `json:"title,omitempty"`
	Thumbnail *URL   `json:"thumbnail,omitempty"`
	HighRes   *URL   `json:"highRes,omitempty"`
	VideoWeb  *URL   `json:"videoWeb,omitempty"`

	// Favorite is nil when favorites do not apply to the item.
	Favorite *bool `json:"favorite,omitempty"`
}

// IsFavorite reports whether the item is marked as a favorite.
func (i Item) IsFavorite() bool {
	return i.Favorite != nil && *i.Favorite
}

// WithFavorite returns a copy of the item with the favorite flag set.
func (i Item) WithFavorite(fav bool) Item {
	i.Favorite = &fav
	return i
}

// Album identifies the album a media item belongs to.
type Album struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
