// Package library scans photo directories and serves their contents page by page.
package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

var favKeyword = "fav"

// ErrNotFound is returned for unknown media ids.
var ErrNotFound = errors.New("not found")

// Snapshot is one consistent scan of the library.
type Snapshot struct {
	// Images are sorted newest first.
	Images []*Image
	Albums []*Album
	Media  []media.Item
	// Rows are sorted by date descending with each album's rows of a day adjacent.
	Rows []timeline.Row
}

// Library is a set of photo directories.
type Library struct {
	dirs []string
	md   Metadata

	mu   sync.RWMutex
	snap *Snapshot
	byID map[string]*Image
}

// New returns a library over dirs. Call Scan before serving pages.
func New(dirs []string, md Metadata) *Library {
	return &Library{dirs: dirs, md: md, snap: &Snapshot{}, byID: map[string]*Image{}}
}

// Dirs returns the library directories.
func (l *Library) Dirs() []string {
	return l.dirs
}

// Scan walks all directories and replaces the current snapshot.
func (l *Library) Scan() (*Snapshot, error) {
	var is []*Image
	for _, d := range l.dirs {
		klog.Infof("scanning %s ...", d)
		found, err := Find(d, l.md)
		if err != nil {
			return nil, fmt.Errorf("find: %w", err)
		}
		if len(l.dirs) > 1 {
			for _, i := range found {
				i.RelPath = filepath.Join(filepath.Base(d), i.RelPath)
				i.Hier = strings.Split(i.RelPath, string(filepath.Separator))
			}
		}
		is = append(is, found...)
	}

	snap := assemble(is)
	byID := make(map[string]*Image, len(is))
	for _, i := range is {
		if prev, ok := byID[i.ID()]; ok {
			klog.Warningf("%s and %s share the ID %q, ignoring the latter", prev.InPath, i.InPath, i.ID())
			continue
		}
		byID[i.ID()] = i
	}

	l.mu.Lock()
	l.snap = snap
	l.byID = byID
	l.mu.Unlock()

	klog.Infof("library has %d images in %d albums (%d timeline rows)", len(snap.Images), len(snap.Albums), len(snap.Rows))
	return snap, nil
}

// Snapshot returns the latest scan.
func (l *Library) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Image returns the image with the given id.
func (l *Library) Image(id string) (*Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	return i, ok
}

// MediaPage returns up to limit media items starting at offset, newest first.
func (l *Library) MediaPage(offset, limit int, onlyFavorites bool) []media.Item {
	ms := l.Snapshot().Media
	if onlyFavorites {
		favs := []media.Item{}
		for _, m := range ms {
			if m.IsFavorite() {
				favs = append(favs, m)
			}
		}
		ms = favs
	}
	return page(ms, offset, limit)
}

// TimelinePage returns up to limit timeline rows starting at offset.
func (l *Library) TimelinePage(offset, limit int) []timeline.Row {
	return page(l.Snapshot().Rows, offset, limit)
}

// SetFavorite marks or unmarks an image as a favorite in its embedded keywords.
func (l *Library) SetFavorite(id string, fav bool) (media.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.byID[id]
	if !ok {
		return media.Item{}, fmt.Errorf("media %q: %w", id, ErrNotFound)
	}

	kws := slices.DeleteFunc(slices.Clone(i.Keywords), func(k string) bool { return k == favKeyword })
	if fav {
		kws = append(kws, favKeyword)
	}
	klog.Infof("%s favorite=%v", id, fav)
	return l.writeKeywords(i, kws)
}

// SetKeywords replaces the keywords of an image. The favorite flag is kept.
func (l *Library) SetKeywords(id string, keywords []string) (media.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.byID[id]
	if !ok {
		return media.Item{}, fmt.Errorf("media %q: %w", id, ErrNotFound)
	}

	kws := slices.DeleteFunc(slices.Clone(keywords), func(k string) bool { return k == favKeyword })
	if slices.Contains(i.Keywords, favKeyword) {
		kws = append(kws, favKeyword)
	}
	return l.writeKeywords(i, kws)
}

func (l *Library) writeKeywords(i *Image, kws []string) (media.Item, error) {
	if err := l.md.SetKeywords(i.InPath, kws); err != nil {
		return media.Item{}, fmt.Errorf("set keywords: %w", err)
	}
	i.Keywords = kws

	l.snap = assemble(l.snap.Images)
	return toItem(i), nil
}

func page[T any](vs []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(vs) {
		return []T{}
	}
	end := len(vs)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return slices.Clone(vs[offset:end])
}

// assemble builds albums, the media stream and the timeline rows from images.
func assemble(is []*Image) *Snapshot {
	is = slices.Clone(is)
	sort.SliceStable(is, func(a, b int) bool {
		if !is[a].Taken.Equal(is[b].Taken) {
			return is[a].Taken.After(is[b].Taken)
		}
		return is[a].RelPath < is[b].RelPath
	})

	albums := map[string]*Album{}
	ms := make([]media.Item, 0, len(is))
	for _, i := range is {
		rd := filepath.Dir(i.RelPath)
		if albums[rd] == nil {
			albums[rd] = &Album{
				ID:     urlSafePath(rd),
				InPath: rd,
				Title:  filepath.Base(rd),
				Hier:   strings.Split(rd, string(filepath.Separator)),
				Images: []*Image{},
			}
		}
		albums[rd].Images = append(albums[rd].Images, i)
		ms = append(ms, toItem(i))
	}

	as := []*Album{}
	for _, a := range albums {
		as = append(as, a)
	}
	sort.Slice(as, func(i, j int) bool {
		return as[i].InPath < as[j].InPath
	})

	return &Snapshot{Images: is, Albums: as, Media: ms, Rows: rows(is)}
}

type dayAlbum struct {
	day   time.Time
	album string
}

// rows emits one row per (day, album). Days are newest first; within a day, the
// album with the most recent image comes first.
func rows(sorted []*Image) []timeline.Row {
	var out []timeline.Row
	idx := map[dayAlbum]int{}

	for _, i := range sorted {
		rd := filepath.Dir(i.RelPath)
		k := dayAlbum{day: timeline.Day(i.Taken), album: rd}
		n, ok := idx[k]
		if !ok {
			n = len(out)
			idx[k] = n
			out = append(out, timeline.Row{
				Album: media.Album{ID: urlSafePath(rd), Title: filepath.Base(rd)},
				Date:  i.Taken,
			})
		}
		out[n].Media = append(out[n].Media, toItem(i))
		out[n].MediaTotal++
	}

	// sorted is newest first, so rows are already in first-seen order per day;
	// a stable sort by day keeps each day's albums in that order.
	sort.SliceStable(out, func(a, b int) bool {
		return timeline.Day(out[a].Date).After(timeline.Day(out[b].Date))
	})
	return out
}

func toItem(i *Image) media.Item {
	id := i.ID()
	it := media.Item{
		ID:    id,
		Type:  media.Photo,
		Title: i.Title,
	}
	if it.Title == "" {
		it.Title = filepath.Base(i.RelPath)
	}

	if i.Video {
		it.Type = media.Video
		it.VideoWeb = &media.URL{URL: "/original/" + id, Width: int(i.Width), Height: int(i.Height)}
	} else {
		w, h := scaled(int(i.Width), int(i.Height), defaultThumbOpts[ThumbTiny])
		it.Thumbnail = &media.URL{URL: ThumbURL(ThumbTiny, id), Width: w, Height: h}
		w, h = scaled(int(i.Width), int(i.Height), defaultThumbOpts[ThumbView])
		it.HighRes = &media.URL{URL: ThumbURL(ThumbView, id), Width: w, Height: h}
	}

	return it.WithFavorite(slices.Contains(i.Keywords, favKeyword))
}
