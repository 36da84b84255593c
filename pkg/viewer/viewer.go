// Package viewer is a terminal timeline gallery.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/gallery"
	"github.com/tstromberg/fotovy/pkg/history"
	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/paginate"
	"github.com/tstromberg/fotovy/pkg/query"
	"github.com/tstromberg/fotovy/pkg/scroll"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

// nearEnd is how many media items before the last loaded one the next page is requested.
const nearEnd = 8

// Options configure a Model.
type Options struct {
	PageSize int
	// Rows returns one page of timeline rows.
	Rows query.Source[timeline.Row]
	// Media returns the flat media source, limited to favorites if asked. The flat
	// view is unavailable if nil.
	Media func(onlyFavorites bool) query.Source[media.Item]
	// SetFavorite persists a favorite flag. Favorites cannot be toggled if nil.
	SetFavorite func(id string, fav bool) (media.Item, error)
}

// ReloadMsg makes the model load the timeline again from the first page.
type ReloadMsg struct{}

type (
	rowsMsg     struct{ err error }
	favoriteMsg struct {
		item media.Item
		err  error
	}
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dayStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	albumStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeStyle = lipgloss.NewStyle().Reverse(true)
	favStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	presentBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 4)
)

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx  context.Context
	opts Options

	store   *gallery.Store[gallery.TimelineState]
	hist    *history.Stack[gallery.TimelineIndex]
	q       *query.Query[timeline.Row]
	scroll  *scroll.Controller[paginate.List[timeline.Row], timeline.Row]
	cleanup []func()

	mediaCache *paginate.Cache[media.Item]
	flat       *flatView
	showFlat   bool

	// pending is set when rows arrived while presenting; they are applied on close.
	pending bool
	favs    map[string]bool
	status  string
	err     error
	height  int
}

// New returns a viewer model. Call Close when done.
func New(ctx context.Context, opts Options) (*Model, error) {
	if opts.Rows == nil {
		return nil, errors.New("viewer: Rows is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = scroll.DefaultPageSize
	}

	m := &Model{
		ctx:   ctx,
		opts:  opts,
		store: gallery.NewTimelineStore(gallery.NewTimelineState(nil)),
		hist:  history.NewStack[gallery.TimelineIndex](),
		q:     query.New(paginate.NewCache[timeline.Row](), "timeline", "all", opts.Rows),
		favs:  map[string]bool{},

		mediaCache: paginate.NewCache[media.Item](),
	}

	c, stop, err := m.q.Paginate(opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("paginate: %w", err)
	}
	m.scroll = c
	m.cleanup = append(m.cleanup, stop, history.Mount[gallery.TimelineIndex, gallery.TimelineState](m.hist, m.store, nil))
	return m, nil
}

// Close detaches the model from its query and history.
func (m *Model) Close() {
	for _, fn := range m.cleanup {
		fn()
	}
	m.cleanup = nil
	if m.flat != nil {
		m.flat.close()
	}
}

// State returns the current gallery state.
func (m *Model) State() gallery.TimelineState {
	return m.store.State()
}

// Init loads the first page.
func (m *Model) Init() tea.Cmd {
	return m.load
}

func (m *Model) load() tea.Msg {
	_, err := m.q.Run(m.ctx, m.opts.PageSize)
	return rowsMsg{err: err}
}

func (m *Model) more() tea.Msg {
	_, err := m.scroll.Signal(m.ctx, true)
	return rowsMsg{err: err}
}

func (m *Model) favorite(id string, fav bool) tea.Cmd {
	return func() tea.Msg {
		it, err := m.opts.SetFavorite(id, fav)
		return favoriteMsg{item: it, err: err}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case ReloadMsg:
		if m.showFlat {
			return m, tea.Batch(m.load, m.refetch())
		}
		return m, m.load

	case rowsMsg:
		m.err = msg.err
		if msg.err != nil {
			klog.Errorf("load: %v", msg.err)
		}
		m.apply()

	case mediaMsg:
		if m.flat == nil || msg.q != m.flat.q {
			return m, nil
		}
		m.err = msg.err
		if msg.err != nil {
			klog.Errorf("load media: %v", msg.err)
		}
		m.applyMedia()

	case favoriteMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.favs[msg.item.ID] = msg.item.IsFavorite()
		m.status = fmt.Sprintf("%s favorite=%v", msg.item.Title, msg.item.IsFavorite())
		return m, m.flatFavorite(msg.item)

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m *Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showFlat {
		return m.flatKey(msg)
	}
	s := m.store.State()

	switch msg.String() {
	case "ctrl+c", "q":
		m.Close()
		return m, tea.Quit

	case "right", "down", "l", "j", " ":
		if s.ActiveIndex.None() {
			m.selectFirst()
		} else {
			m.store.Dispatch(gallery.NextImage{})
		}
		if m.nearEnd() {
			return m, m.more
		}

	case "left", "up", "h", "k":
		m.store.Dispatch(gallery.PreviousImage{})

	case "enter":
		if s.Presenting {
			return m, nil
		}
		if _, ok := s.Active(); ok {
			m.store.Dispatch(gallery.OpenPresentMode[gallery.TimelineIndex]{Index: s.ActiveIndex})
		}

	case "esc", "backspace":
		if s.Presenting {
			m.hist.Back()
			m.afterClose()
		}

	case "]":
		m.hist.Forward()

	case "g":
		return m, m.toggleFlat()

	case "f":
		it, ok := s.Active()
		if !ok || m.opts.SetFavorite == nil {
			return m, nil
		}
		return m, m.favorite(it.ID, !m.isFavorite(it))
	}
	return m, nil
}

func (m *Model) selectFirst() {
	for d, g := range m.store.State().Groups {
		for a, album := range g.Albums {
			if len(album.Media) > 0 {
				m.store.Dispatch(gallery.SelectImage[gallery.TimelineIndex]{Index: gallery.TimelineIndex{Date: d, Album: a, Media: 0}})
				return
			}
		}
	}
}

// apply replaces the groups with the loaded rows, keeping the selected item if it is
// still there.
func (m *Model) apply() {
	s := m.store.State()
	if s.Presenting {
		m.pending = true
		return
	}
	m.pending = false

	groups := timeline.Convert(m.q.Result().Data.Prefix())
	if frags := timeline.Fragmented(groups); len(frags) > 0 {
		klog.Warningf("timeline albums split within a day: %v", frags)
	}
	prev, selected := s.Active()
	m.store.Dispatch(gallery.ReplaceTimelineGroups{Groups: groups})
	if !selected {
		return
	}
	if i, ok := m.store.State().Find(prev.ID); ok {
		m.store.Dispatch(gallery.SelectImage[gallery.TimelineIndex]{Index: i})
	}
}

func (m *Model) afterClose() {
	if m.pending && !m.store.State().Presenting {
		m.apply()
	}
}

// position returns the flat position of the selection and the number of media loaded.
func position(s gallery.TimelineState) (int, int) {
	pos, total := -1, 0
	for d, g := range s.Groups {
		for a, album := range g.Albums {
			if d == s.ActiveIndex.Date && a == s.ActiveIndex.Album {
				pos = total + s.ActiveIndex.Media
			}
			total += len(album.Media)
		}
	}
	return pos, total
}

func (m *Model) nearEnd() bool {
	pos, total := position(m.store.State())
	return pos >= 0 && total-pos <= nearEnd
}

func (m *Model) isFavorite(it media.Item) bool {
	if fav, ok := m.favs[it.ID]; ok {
		return fav
	}
	return it.IsFavorite()
}

// View renders the timeline or the presented item.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("fotovy"))
	if m.status != "" {
		b.WriteString("  " + m.status)
	}
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()) + "\n")
	}

	if m.showFlat {
		b.WriteString(m.flatString())
		return b.String()
	}

	s := m.store.State()
	if s.Presenting {
		it, ok := s.Active()
		if !ok {
			b.WriteString(presentBox.Render("(nothing selected)"))
		} else {
			pos, total := position(s)
			b.WriteString(m.present(it, pos, total, m.isFavorite(it)))
		}
		b.WriteString("\n" + helpStyle.Render("←/→ move • esc back • f favorite • q quit"))
		return b.String()
	}

	b.WriteString(m.grid(s))
	b.WriteString("\n" + helpStyle.Render("←/→ move • enter open • ] forward • g all media • f favorite • q quit"))
	return b.String()
}

func (m *Model) present(it media.Item, pos, total int, fav bool) string {
	lines := []string{titleStyle.Render(it.Title), it.ID}
	if r := it.HighRes; r != nil {
		lines = append(lines, fmt.Sprintf("%s %dx%d", r.URL, r.Width, r.Height))
	}
	if r := it.VideoWeb; r != nil {
		lines = append(lines, fmt.Sprintf("video %s %dx%d", r.URL, r.Width, r.Height))
	}
	if fav {
		lines = append(lines, favStyle.Render("★ favorite"))
	}
	lines = append(lines, helpStyle.Render(fmt.Sprintf("%d / %d", pos+1, total)))
	return presentBox.Render(strings.Join(lines, "\n"))
}

func (m *Model) grid(s gallery.TimelineState) string {
	var lines []string
	active := 0
	for d, g := range s.Groups {
		lines = append(lines, dayStyle.Render(g.Date.Format("Monday, January 2 2006")))
		for a, album := range g.Albums {
			var cells []string
			for i, it := range album.Media {
				cell := it.Title
				if m.isFavorite(it) {
					cell = favStyle.Render("★") + cell
				}
				if (gallery.TimelineIndex{Date: d, Album: a, Media: i}) == s.ActiveIndex {
					cell = activeStyle.Render(cell)
					active = len(lines)
				}
				cells = append(cells, cell)
			}
			lines = append(lines, "  "+albumStyle.Render(album.Title)+"  "+strings.Join(cells, " "))
		}
	}
	if len(lines) == 0 {
		return "(no photos)"
	}
	return strings.Join(window(lines, active, m.height-3), "\n")
}

// window returns at most n lines of ls, keeping line active visible.
func window(ls []string, active, n int) []string {
	if n <= 0 || len(ls) <= n {
		return ls
	}
	start := active - n/2
	if start < 0 {
		start = 0
	}
	if start+n > len(ls) {
		start = len(ls) - n
	}
	return ls[start : start+n]
}
