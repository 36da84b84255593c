package viewer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/gallery"
	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/paginate"
	"github.com/tstromberg/fotovy/pkg/query"
	"github.com/tstromberg/fotovy/pkg/scroll"
)

// flatView is the newest-first list of all media, optionally limited to favorites.
type flatView struct {
	store  *gallery.Store[gallery.AlbumState]
	q      *query.Query[media.Item]
	scroll *scroll.Controller[paginate.List[media.Item], media.Item]
	stop   func()
	// pending is set when media arrived while presenting.
	pending bool
}

type mediaMsg struct {
	q   *query.Query[media.Item]
	err error
}

func (f *flatView) close() {
	if f.stop != nil {
		f.stop()
		f.stop = nil
	}
}

// toggleFlat switches between the timeline and the flat view. Entering the flat
// view loads it from the first page.
func (m *Model) toggleFlat() tea.Cmd {
	if m.opts.Media == nil {
		m.status = "no media view"
		return nil
	}
	if m.flat == nil {
		m.flat = &flatView{store: gallery.NewAlbumStore(gallery.NewAlbumState(nil, false))}
	}
	m.showFlat = !m.showFlat
	if !m.showFlat {
		return nil
	}
	return m.refetch()
}

// refetch starts a fresh query matching the favorites filter of the flat view.
func (m *Model) refetch() tea.Cmd {
	only := m.flat.store.State().OnlyFavorites
	key := "all"
	if only {
		key = "favorites"
	}

	q := query.New(m.mediaCache, "media", key, m.opts.Media(only))
	c, stop, err := q.Paginate(m.opts.PageSize)
	if err != nil {
		m.err = fmt.Errorf("paginate: %w", err)
		return nil
	}
	m.flat.close()
	m.flat.q, m.flat.scroll, m.flat.stop = q, c, stop

	return func() tea.Msg {
		_, err := q.Run(m.ctx, m.opts.PageSize)
		return mediaMsg{q: q, err: err}
	}
}

func (m *Model) moreMedia() tea.Msg {
	q, c := m.flat.q, m.flat.scroll
	_, err := c.Signal(m.ctx, true)
	return mediaMsg{q: q, err: err}
}

// applyMedia replaces the flat view's media with what its query holds, keeping the
// selected item if it is still there.
func (m *Model) applyMedia() {
	f := m.flat
	s := f.store.State()
	if s.Presenting {
		f.pending = true
		return
	}
	f.pending = false

	prev, selected := s.Active()
	f.store.Dispatch(gallery.ReplaceMedia{Media: f.q.Result().Data.Prefix()})
	if !selected {
		return
	}
	if i := f.store.State().Find(prev.ID); i != gallery.NoIndex {
		f.store.Dispatch(gallery.SelectImage[int]{Index: i})
	}
}

// flatFavorite records a persisted favorite change in the flat view. It returns a
// command reloading the view if the change no longer matches its filter.
func (m *Model) flatFavorite(it media.Item) tea.Cmd {
	if m.flat == nil {
		return nil
	}
	s := m.flat.store.State()
	i := s.Find(it.ID)
	if i == gallery.NoIndex || s.Media[i].IsFavorite() == it.IsFavorite() {
		return nil
	}
	if s = m.flat.store.Dispatch(gallery.ToggleFavorite{Index: i}); s.Refetch && m.showFlat {
		klog.V(1).Infof("favorite filter no longer matches, reloading")
		return m.refetch()
	}
	return nil
}

func (m *Model) flatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.flat
	s := f.store.State()

	switch msg.String() {
	case "ctrl+c", "q":
		m.Close()
		return m, tea.Quit

	case "g":
		return m, m.toggleFlat()

	case "right", "down", "l", "j", " ":
		s = f.store.Dispatch(gallery.NextImage{})
		if len(s.Media)-s.ActiveIndex <= nearEnd {
			return m, m.moreMedia
		}

	case "left", "up", "h", "k":
		f.store.Dispatch(gallery.PreviousImage{})

	case "enter":
		if _, ok := s.Active(); ok && !s.Presenting {
			f.store.Dispatch(gallery.OpenPresentMode[int]{Index: s.ActiveIndex})
		}

	case "esc", "backspace":
		if s.Presenting {
			f.store.Dispatch(gallery.ClosePresentMode{})
			if f.pending {
				m.applyMedia()
			}
		}

	case "*":
		if s = f.store.Dispatch(gallery.SetOnlyFavorites{Only: !s.OnlyFavorites}); s.Refetch {
			return m, m.refetch()
		}

	case "f":
		it, ok := s.Active()
		if !ok || m.opts.SetFavorite == nil {
			return m, nil
		}
		return m, m.favorite(it.ID, !it.IsFavorite())
	}
	return m, nil
}

func (m *Model) flatString() string {
	s := m.flat.store.State()
	if s.Presenting {
		it, ok := s.Active()
		if !ok {
			return presentBox.Render("(nothing selected)")
		}
		return m.present(it, s.ActiveIndex, len(s.Media), it.IsFavorite()) +
			"\n" + helpStyle.Render("←/→ move • esc back • f favorite • q quit")
	}

	title := "all media"
	if s.OnlyFavorites {
		title = "favorites"
	}
	lines := []string{dayStyle.Render(title)}
	for i, it := range s.Media {
		cell := it.Title
		if it.IsFavorite() {
			cell = favStyle.Render("★") + cell
		}
		if i == s.ActiveIndex {
			cell = activeStyle.Render(cell)
		}
		lines = append(lines, "  "+cell)
	}
	if len(s.Media) == 0 {
		lines = append(lines, "  (no media)")
	}
	active := max(s.ActiveIndex+1, 0)
	return strings.Join(window(lines, active, m.height-3), "\n") +
		"\n" + helpStyle.Render("←/→ move • enter open • * favorites only • g timeline • f favorite • q quit")
}
