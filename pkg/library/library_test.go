package library

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

type fakeMetadata struct {
	images map[string]Image
	set    map[string][]string
	err    error
}

func (f *fakeMetadata) Read(path string) (Image, error) {
	return f.images[filepath.Base(path)], nil
}

func (f *fakeMetadata) SetKeywords(path string, keywords []string) error {
	if f.err != nil {
		return f.err
	}
	if f.set == nil {
		f.set = map[string][]string{}
	}
	f.set[filepath.Base(path)] = keywords
	return nil
}

func (f *fakeMetadata) Close() error { return nil }

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func at(day, hour int) time.Time {
	return time.Date(2024, 5, day, hour, 0, 0, 0, time.UTC)
}

func testLibrary(t *testing.T) (*Library, *fakeMetadata) {
	t.Helper()
	root := t.TempDir()
	touch(t, filepath.Join(root, "beach", "a1.jpg"))
	touch(t, filepath.Join(root, "beach", "a2.jpg"))
	touch(t, filepath.Join(root, "beach", "a3.jpg"))
	touch(t, filepath.Join(root, "city", "b1.jpg"))
	touch(t, filepath.Join(root, "city", "clip.mp4"))
	touch(t, filepath.Join(root, "city", "notes.txt"))
	touch(t, filepath.Join(root, ".hidden", "h.jpg"))
	touch(t, filepath.Join(root, "city", "_", "thumb.jpg"))

	md := &fakeMetadata{images: map[string]Image{
		"a1.jpg":   {Taken: at(2, 10), Width: 400, Height: 300},
		"a2.jpg":   {Taken: at(2, 8), Width: 400, Height: 300, Keywords: []string{"fav"}},
		"a3.jpg":   {Taken: at(1, 9), Width: 300, Height: 400},
		"b1.jpg":   {Taken: at(2, 9), Width: 400, Height: 300, Title: "Tower"},
		"clip.mp4": {Taken: at(1, 12), Width: 1920, Height: 1080},
	}}

	l := New([]string{root}, md)
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return l, md
}

func ids[T any](vs []T, id func(T) string) []string {
	out := []string{}
	for _, v := range vs {
		out = append(out, id(v))
	}
	return out
}

func TestScan(t *testing.T) {
	l, _ := testLibrary(t)
	snap := l.Snapshot()

	got := ids(snap.Images, func(i *Image) string { return i.ID() })
	want := []string{"beach/a1.jpg", "city/b1.jpg", "beach/a2.jpg", "city/clip.mp4", "beach/a3.jpg"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected image order (-want +got):\n%s", diff)
	}

	albums := ids(snap.Albums, func(a *Album) string { return a.ID })
	if diff := cmp.Diff([]string{"beach", "city"}, albums); diff != "" {
		t.Errorf("unexpected albums (-want +got):\n%s", diff)
	}

	clip := snap.Media[3]
	if clip.VideoWeb == nil || clip.Thumbnail != nil {
		t.Errorf("clip should be a video without thumbnail: %+v", clip)
	}
	if snap.Media[1].Title != "Tower" || snap.Media[0].Title != "a1.jpg" {
		t.Errorf("unexpected titles: %q, %q", snap.Media[1].Title, snap.Media[0].Title)
	}
	if th := snap.Media[0].Thumbnail; th == nil || th.Width != 240 || th.Height != 180 {
		t.Errorf("unexpected tiny thumbnail: %+v", th)
	}
	for _, m := range snap.Media {
		if m.Favorite == nil {
			t.Errorf("%s: favorite should always be known", m.ID)
		}
	}
}

func TestRows(t *testing.T) {
	l, _ := testLibrary(t)

	type row struct {
		Day   string
		Album string
		Media []string
	}
	var got []row
	for _, r := range l.TimelinePage(0, 100) {
		got = append(got, row{
			Day:   r.Date.Format("2006-01-02"),
			Album: r.Album.ID,
			Media: ids(r.Media, func(m media.Item) string { return m.ID }),
		})
		if r.MediaTotal != len(r.Media) {
			t.Errorf("row %s/%s total=%d, media=%d", r.Date, r.Album.ID, r.MediaTotal, len(r.Media))
		}
	}
	want := []row{
		{Day: "2024-05-02", Album: "beach", Media: []string{"beach/a1.jpg", "beach/a2.jpg"}},
		{Day: "2024-05-02", Album: "city", Media: []string{"city/b1.jpg"}},
		{Day: "2024-05-01", Album: "city", Media: []string{"city/clip.mp4"}},
		{Day: "2024-05-01", Album: "beach", Media: []string{"beach/a3.jpg"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected rows (-want +got):\n%s", diff)
	}

	groups := timeline.Convert(l.TimelinePage(0, 100))
	if len(groups) != 2 || len(timeline.Fragmented(groups)) != 0 {
		t.Errorf("rows should group into 2 unfragmented days, got %d groups", len(groups))
	}
}

func TestPages(t *testing.T) {
	l, _ := testLibrary(t)

	tests := []struct {
		name   string
		offset int
		limit  int
		fav    bool
		want   []string
	}{
		{name: "first", offset: 0, limit: 2, want: []string{"beach/a1.jpg", "city/b1.jpg"}},
		{name: "middle", offset: 2, limit: 2, want: []string{"beach/a2.jpg", "city/clip.mp4"}},
		{name: "short", offset: 4, limit: 2, want: []string{"beach/a3.jpg"}},
		{name: "past end", offset: 9, limit: 2, want: []string{}},
		{name: "no limit", offset: 3, limit: -1, want: []string{"city/clip.mp4", "beach/a3.jpg"}},
		{name: "favorites", offset: 0, limit: 10, fav: true, want: []string{"beach/a2.jpg"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(l.MediaPage(tc.offset, tc.limit, tc.fav), func(m media.Item) string { return m.ID })
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("unexpected page (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetFavorite(t *testing.T) {
	l, md := testLibrary(t)

	it, err := l.SetFavorite("beach/a1.jpg", true)
	if err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if !it.IsFavorite() {
		t.Errorf("returned item should be a favorite")
	}
	if diff := cmp.Diff([]string{"fav"}, md.set["a1.jpg"]); diff != "" {
		t.Errorf("unexpected keywords (-want +got):\n%s", diff)
	}
	favs := ids(l.MediaPage(0, 10, true), func(m media.Item) string { return m.ID })
	if diff := cmp.Diff([]string{"beach/a1.jpg", "beach/a2.jpg"}, favs); diff != "" {
		t.Errorf("unexpected favorites (-want +got):\n%s", diff)
	}

	if _, err := l.SetFavorite("beach/a2.jpg", false); err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if len(md.set["a2.jpg"]) != 0 {
		t.Errorf("fav keyword should be removed, got %v", md.set["a2.jpg"])
	}

	if _, err := l.SetFavorite("nope", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	md.err = errors.New("read-only")
	if _, err := l.SetFavorite("city/b1.jpg", true); err == nil {
		t.Errorf("expected a write error")
	}
	if l.MediaPage(1, 1, false)[0].IsFavorite() {
		t.Errorf("failed write should leave the item unchanged")
	}
}

func TestMultipleDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	touch(t, filepath.Join(a, "trip", "x.jpg"))
	touch(t, filepath.Join(b, "trip", "x.jpg"))
	md := &fakeMetadata{images: map[string]Image{"x.jpg": {Taken: at(3, 3)}}}

	l := New([]string{a, b}, md)
	snap, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Albums) != 2 {
		t.Errorf("same-named albums from different roots should stay apart, got %d", len(snap.Albums))
	}
}

func TestThumbnailer(t *testing.T) {
	root := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 720, 360))
	for x := 0; x < 720; x++ {
		img.Set(x, x%360, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(root, "album", "p.jpg")
	touch(t, path)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := New([]string{root}, &fakeMetadata{images: map[string]Image{"p.jpg": {Width: 720, Height: 360}}})
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	th := NewThumbnailer(l)
	bs, err := th.Fetch(context.Background(), ThumbKey(ThumbTiny, "album/p.jpg"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(bs))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 360 || cfg.Height != 180 {
		t.Errorf("expected 360x180, got %dx%d", cfg.Width, cfg.Height)
	}

	for _, key := range []string{"nokey", "Huge/album/p.jpg", "Tiny/album/missing.jpg"} {
		if _, err := th.Fetch(context.Background(), key); err == nil {
			t.Errorf("%s: expected an error", key)
		}
	}
}

func TestSetKeywordsKeepsFavorite(t *testing.T) {
	l, md := testLibrary(t)

	if _, err := l.SetKeywords("beach/a2.jpg", []string{"beach", "sunrise"}); err != nil {
		t.Fatalf("SetKeywords: %v", err)
	}
	if diff := cmp.Diff([]string{"beach", "sunrise", "fav"}, md.set["a2.jpg"]); diff != "" {
		t.Errorf("unexpected keywords (-want +got):\n%s", diff)
	}

	if _, err := l.SetKeywords("beach/a1.jpg", []string{"fav", "sand"}); err != nil {
		t.Fatalf("SetKeywords: %v", err)
	}
	if diff := cmp.Diff([]string{"sand"}, md.set["a1.jpg"]); diff != "" {
		t.Errorf("keywords must not add a favorite (-want +got):\n%s", diff)
	}
}

func TestURLSafePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "beach/a1.jpg", want: "beach/a1.jpg"},
		{in: "beach/a b.jpg", want: "beach/a_20b.jpg"},
		{in: "beach/a_b.jpg", want: "beach/a__b.jpg"},
		{in: "beach/a_20b.jpg", want: "beach/a__20b.jpg"},
		{in: "x/#1?%.jpg", want: "x/_231_3F_25.jpg"},
	}
	seen := map[string]string{}
	for _, tc := range tests {
		got := urlSafePath(tc.in)
		if got != tc.want {
			t.Errorf("urlSafePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if prev, ok := seen[got]; ok {
			t.Errorf("%q and %q share the ID %q", prev, tc.in, got)
		}
		seen[got] = tc.in
	}
}

func TestSimilarNamesKeepDistinctIDs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "trip", "a b.jpg"))
	touch(t, filepath.Join(root, "trip", "a_b.jpg"))
	md := &fakeMetadata{images: map[string]Image{
		"a b.jpg": {Taken: at(3, 3)},
		"a_b.jpg": {Taken: at(3, 4)},
	}}

	l := New([]string{root}, md)
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, id := range []string{"trip/a_20b.jpg", "trip/a__b.jpg"} {
		if _, ok := l.Image(id); !ok {
			t.Errorf("%s should be found", id)
		}
	}
	if got := len(l.MediaPage(0, -1, false)); got != 2 {
		t.Errorf("expected 2 items, got %d", got)
	}
}
