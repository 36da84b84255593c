// Package scroll requests further pages of a list when the viewer nears its end.
package scroll

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/paginate"
)

// DefaultPageSize is used when Options.PageSize is not set.
const DefaultPageSize = 60

// Options configures a Controller.
type Options[D any, T any] struct {
	PageSize int
	// FetchMore requests one more page and returns the data of that page.
	FetchMore func(ctx context.Context, args paginate.Args) (D, error)
	// GetItems returns the list held by data.
	GetItems func(data D) []T
	// Length returns the current list length, holes included. Defaults to len(GetItems(data)).
	Length func(data D) int
}

// Controller turns "near the end" signals into FetchMore calls until a short page
// shows that the list is exhausted.
type Controller[D any, T any] struct {
	opts Options[D, T]
	sem  *semaphore.Weighted

	mu       sync.Mutex
	data     *D
	loading  bool
	finished bool
	fetching bool
	seen     bool
	// gen changes on every reset so that stale pages do not finish a fresh query.
	gen int
}

// New returns a controller. FetchMore and GetItems are required.
func New[D any, T any](opts Options[D, T]) (*Controller[D, T], error) {
	if opts.FetchMore == nil || opts.GetItems == nil {
		return nil, errors.New("scroll: FetchMore and GetItems are required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Length == nil {
		get := opts.GetItems
		opts.Length = func(d D) int { return len(get(d)) }
	}
	return &Controller[D, T]{opts: opts, sem: semaphore.NewWeighted(1)}, nil
}

// Update records the latest query result. A nil data resets the controller, as
// happens when a filter change starts a fresh query.
func (c *Controller[D, T]) Update(data *D, loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = loading
	if data == nil {
		if c.data != nil || c.finished {
			klog.V(1).Infof("scroll: data reset, pagination restarts")
		}
		c.data = nil
		c.finished = false
		c.seen = false
		c.gen++
		return
	}

	c.data = data
	if !c.seen && !loading {
		c.seen = true
		if n := c.opts.Length(*data); n < c.opts.PageSize {
			klog.V(1).Infof("scroll: first page has %d of %d items, finished", n, c.opts.PageSize)
			c.finished = true
		}
	}
}

// Finished reports whether the list is known to be exhausted.
func (c *Controller[D, T]) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Fetching reports whether a FetchMore call started by Signal is outstanding.
func (c *Controller[D, T]) Fetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetching
}

// Signal handles one "near the end" notification. It returns true if a page was
// fetched. Signals that arrive while a fetch is outstanding are ignored.
func (c *Controller[D, T]) Signal(ctx context.Context, near bool) (bool, error) {
	if !near {
		return false, nil
	}

	c.mu.Lock()
	if c.loading || c.finished || c.data == nil {
		c.mu.Unlock()
		return false, nil
	}
	offset := c.opts.Length(*c.data)
	gen := c.gen
	c.mu.Unlock()

	if !c.sem.TryAcquire(1) {
		klog.V(2).Infof("scroll: fetch already outstanding, ignoring signal")
		return false, nil
	}
	defer c.sem.Release(1)
	c.setFetching(true)
	defer c.setFetching(false)

	limit := c.opts.PageSize
	klog.V(1).Infof("scroll: fetching more at offset %d (limit %d)", offset, limit)
	page, err := c.opts.FetchMore(ctx, paginate.Page(offset, limit))
	if err != nil {
		return false, fmt.Errorf("fetch more at offset %d: %w", offset, err)
	}

	n := len(c.opts.GetItems(page))
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		klog.V(1).Infof("scroll: dropping page fetched before a reset")
		return true, nil
	}
	if n < limit {
		klog.V(1).Infof("scroll: short page (%d < %d), finished", n, limit)
		c.finished = true
	}
	return true, nil
}

func (c *Controller[D, T]) setFetching(f bool) {
	c.mu.Lock()
	c.fetching = f
	c.mu.Unlock()
}

// Watch handles signals until ctx is done or signals is closed. Fetch errors are
// logged and watching continues; already merged pages are kept.
func (c *Controller[D, T]) Watch(ctx context.Context, signals <-chan bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case near, ok := <-signals:
			if !ok {
				return nil
			}
			if _, err := c.Signal(ctx, near); err != nil {
				klog.Errorf("scroll: %v", err)
			}
		}
	}
}
