package library

import (
	"time"
)

// Image represents a photo or video with the metadata the gallery needs.
type Image struct {
	InPath  string
	RelPath string
	ModTime time.Time
	Hier    []string

	Taken time.Time
	Video bool

	Keywords    []string
	Title       string
	Description string

	Make  string
	Model string

	Width  int64
	Height int64
}

// Album represents the images of one directory.
type Album struct {
	ID     string
	Title  string
	InPath string
	Hier   []string
	Images []*Image
}

// ID returns the identifier the gallery uses for the image.
func (i *Image) ID() string {
	return urlSafePath(i.RelPath)
}
