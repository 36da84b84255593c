package paginate

import (
	"sync"

	"k8s.io/klog/v2"
)

type fieldKey struct {
	field string
	key   string
}

// Cache stores one sparse list per (field, key) pair, where key identifies the
// non-pagination arguments of the field (filters, album id, ...).
// Every merge is atomic with respect to the list it writes.
type Cache[T any] struct {
	mu    sync.RWMutex
	lists map[fieldKey]List[T]
}

// NewCache returns an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{lists: map[fieldKey]List[T]{}}
}

// Merge merges a page into the list stored for field and key and returns the new list.
func (c *Cache[T]) Merge(field, key string, incoming []T, args Args) (List[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := fieldKey{field: field, key: key}
	merged, err := Merge(c.lists[k], incoming, args, field)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("merged %d items into %s[%s] at offset %d (len=%d)", len(incoming), field, key, args.Offset(), len(merged))
	c.lists[k] = merged
	return merged, nil
}

// Read returns the list stored for field and key. The returned list must be treated
// as immutable by callers.
func (c *Cache[T]) Read(field, key string) (List[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lists[fieldKey{field: field, key: key}]
	return l, ok
}

// Evict drops the list stored for field and key.
func (c *Cache[T]) Evict(field, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, fieldKey{field: field, key: key})
}
