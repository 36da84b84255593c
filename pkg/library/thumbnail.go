package library

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	// image decoders for imgio.Open
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// Thumbnail sizes.
const (
	ThumbTiny   = "Tiny"
	ThumbStream = "Stream"
	ThumbAlbum  = "Album"
	ThumbView   = "View"
)

// ThumbOpts are thumbnail options. A zero X or Y keeps the aspect ratio.
type ThumbOpts struct {
	X       int
	Y       int
	Quality int
}

var defaultThumbOpts = map[string]ThumbOpts{
	ThumbTiny:   {Y: 180, Quality: 75},
	ThumbStream: {X: 640, Quality: 85},
	ThumbAlbum:  {Y: 640, Quality: 85},
	ThumbView:   {X: 2048, Quality: 85},
}

// ThumbURL is where the server publishes a thumbnail.
func ThumbURL(size, id string) string {
	return "/thumb/" + size + "/" + id
}

// ThumbKey is the cache key of a thumbnail.
func ThumbKey(size, id string) string {
	return size + "/" + id
}

// ValidThumbSize reports whether size names a known thumbnail size.
func ValidThumbSize(size string) bool {
	_, ok := defaultThumbOpts[size]
	return ok
}

// Thumbnailer renders JPEG thumbnails for library images. Keys are "size/id".
type Thumbnailer struct {
	lib *Library
}

// NewThumbnailer returns a thumbnailer for images of lib.
func NewThumbnailer(lib *Library) *Thumbnailer {
	return &Thumbnailer{lib: lib}
}

// Fetch renders the thumbnail named by key.
func (t *Thumbnailer) Fetch(ctx context.Context, key string) ([]byte, error) {
	size, id, ok := strings.Cut(key, "/")
	if !ok {
		return nil, fmt.Errorf("bad thumbnail key %q", key)
	}
	opts, ok := defaultThumbOpts[size]
	if !ok {
		return nil, fmt.Errorf("unknown thumbnail size %q", size)
	}

	i, ok := t.lib.Image(id)
	if !ok {
		return nil, fmt.Errorf("media %q: %w", id, ErrNotFound)
	}
	if i.Video {
		return nil, fmt.Errorf("%s is a video", id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imgio.Open(i.InPath)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}
	return createThumb(img, opts)
}

func createThumb(i image.Image, t ThumbOpts) ([]byte, error) {
	if i.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("no Y for %+v", i.Bounds())
	}

	if i.Bounds().Dx() == 0 {
		return nil, fmt.Errorf("no X for %+v", i.Bounds())
	}

	x, y := scaled(i.Bounds().Dx(), i.Bounds().Dy(), t)
	klog.V(1).Infof("creating %dx%d thumb from %+v", x, y, i.Bounds())

	rimg := transform.Resize(i, x, y, transform.Lanczos)
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(t.Quality)(&buf, rimg); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// scaled returns the thumbnail dimensions for a w x h image.
func scaled(w, h int, t ThumbOpts) (int, int) {
	x, y := t.X, t.Y
	if w == 0 || h == 0 {
		return x, y
	}

	if t.X == 0 {
		x = int(math.Round(float64(w) * float64(t.Y) / float64(h)))
	}

	if t.Y == 0 {
		y = int(math.Round(float64(h) * float64(t.X) / float64(w)))
	}
	return x, y
}
