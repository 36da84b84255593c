// Package query runs paginated list queries against a local source and keeps the
// results in a paginate.Cache.
package query

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/paginate"
	"github.com/tstromberg/fotovy/pkg/scroll"
)

// Source returns one page of a list.
type Source[T any] func(ctx context.Context, args paginate.Args) ([]T, error)

// Result is what a query currently holds. Data is nil until the first page arrives.
type Result[T any] struct {
	Data    paginate.List[T]
	Err     error
	Loading bool
}

// Query is a list field identified by (field, key), fetched page by page from src.
type Query[T any] struct {
	field string
	key   string
	cache *paginate.Cache[T]
	src   Source[T]

	mu sync.Mutex
	// gen changes on every reset; pages fetched for an older generation are dropped.
	gen       int
	loading   bool
	err       error
	listeners map[int]func(Result[T])
	nextID    int
}

// New returns a query for field and key backed by cache and src.
func New[T any](cache *paginate.Cache[T], field, key string, src Source[T]) *Query[T] {
	return &Query[T]{
		field:     field,
		key:       key,
		cache:     cache,
		src:       src,
		listeners: map[int]func(Result[T]){},
	}
}

// Result returns the current result.
func (q *Query[T]) Result() Result[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resultLocked()
}

func (q *Query[T]) resultLocked() Result[T] {
	data, _ := q.cache.Read(q.field, q.key)
	return Result[T]{Data: data, Err: q.err, Loading: q.loading}
}

// Run discards anything cached for the query and loads the first page.
func (q *Query[T]) Run(ctx context.Context, limit int) (Result[T], error) {
	gen := q.reset()
	q.setLoading(true)
	_, err := q.fetch(ctx, gen, paginate.Page(0, limit))
	return q.Result(), err
}

// FetchMore loads one more page and merges it into the cache. It returns the page
// as a list so that callers can see how many items arrived. Errors are recorded in
// the result, pages merged earlier are kept. A page that arrives after a Reset is
// returned but not merged.
func (q *Query[T]) FetchMore(ctx context.Context, args paginate.Args) (paginate.List[T], error) {
	q.mu.Lock()
	gen := q.gen
	q.mu.Unlock()
	return q.fetch(ctx, gen, args)
}

func (q *Query[T]) fetch(ctx context.Context, gen int, args paginate.Args) (paginate.List[T], error) {
	page, err := q.src(ctx, args)
	if err != nil {
		err = fmt.Errorf("%s: %w", q.field, err)
		q.finish(gen, err)
		return nil, err
	}

	q.mu.Lock()
	if gen != q.gen {
		q.mu.Unlock()
		klog.V(1).Infof("query %s[%s]: dropping page at offset %d fetched before a reset", q.field, q.key, args.Offset())
		return paginate.FromSlice(page), nil
	}
	_, err = q.cache.Merge(q.field, q.key, page, args)
	q.mu.Unlock()
	if err != nil {
		q.finish(gen, err)
		return nil, err
	}

	klog.V(1).Infof("query %s[%s]: %d items at offset %d", q.field, q.key, len(page), args.Offset())
	q.finish(gen, nil)
	return paginate.FromSlice(page), nil
}

// Reset drops the cached list, as done when a filter changes. Fetches still running
// are not merged.
func (q *Query[T]) Reset() {
	q.reset()
}

func (q *Query[T]) reset() int {
	q.mu.Lock()
	q.gen++
	gen := q.gen
	q.cache.Evict(q.field, q.key)
	q.err = nil
	q.mu.Unlock()
	q.notify()
	return gen
}

func (q *Query[T]) setLoading(loading bool) {
	q.mu.Lock()
	q.loading = loading
	q.mu.Unlock()
	q.notify()
}

func (q *Query[T]) finish(gen int, err error) {
	q.mu.Lock()
	if gen != q.gen {
		q.mu.Unlock()
		return
	}
	q.loading = false
	q.err = err
	q.mu.Unlock()
	q.notify()
}

func (q *Query[T]) notify() {
	q.mu.Lock()
	r := q.resultLocked()
	ls := make([]func(Result[T]), 0, len(q.listeners))
	for id := 0; id < q.nextID; id++ {
		if fn, ok := q.listeners[id]; ok {
			ls = append(ls, fn)
		}
	}
	q.mu.Unlock()

	for _, fn := range ls {
		fn(r)
	}
}

// Subscribe registers fn for every result change and returns a function removing it.
func (q *Query[T]) Subscribe(fn func(Result[T])) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.listeners, id)
	}
}

// Paginate returns a scroll controller wired to the query: it fetches through
// FetchMore and follows every result change.
func (q *Query[T]) Paginate(pageSize int) (*scroll.Controller[paginate.List[T], T], func(), error) {
	c, err := scroll.New(scroll.Options[paginate.List[T], T]{
		PageSize:  pageSize,
		FetchMore: q.FetchMore,
		GetItems:  func(l paginate.List[T]) []T { return l.Items() },
		Length:    func(l paginate.List[T]) int { return l.Len() },
	})
	if err != nil {
		return nil, nil, err
	}

	follow := func(r Result[T]) {
		if r.Data == nil {
			c.Update(nil, r.Loading)
			return
		}
		data := r.Data
		c.Update(&data, r.Loading)
	}
	follow(q.Result())
	return c, q.Subscribe(follow), nil
}
