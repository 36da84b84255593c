// Package blobcache caches fetched media bytes on disk.
//
// A Cache is an explicit instance: it owns its directory, evicts according to
// an injected Policy and removes the directory on Close if it created it.
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// ErrClosed is returned by a closed cache.
var ErrClosed = errors.New("blobcache closed")

// Fetcher loads the bytes for a key on a cache miss.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

// Options configure a Cache.
type Options struct {
	// Dir holds the cached blobs. If empty, a temporary directory is created and
	// removed on Close.
	Dir     string
	Fetcher Fetcher
	// Policy defaults to LRU{MaxEntries: 1024}.
	Policy Policy
	// CacheSizeMax is the size of the in-memory tier in bytes.
	CacheSizeMax uint64
	Now          func() time.Time
}

// Cache is a disk-backed blob cache.
type Cache struct {
	d       *diskv.Diskv
	dir     string
	ownsDir bool
	fetcher Fetcher
	now     func() time.Time
	group   singleflight.Group

	mu     sync.Mutex
	policy Policy
	closed bool
}

// New returns a cache configured by opts.
func New(opts Options) (*Cache, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("blobcache: Fetcher is required")
	}

	c := &Cache{
		dir:     opts.Dir,
		fetcher: opts.Fetcher,
		policy:  opts.Policy,
		now:     opts.Now,
	}
	if c.policy == nil {
		c.policy = NewLRU(1024)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.dir == "" {
		dir, err := os.MkdirTemp("", "fotovy-blobs-")
		if err != nil {
			return nil, fmt.Errorf("mkdir temp: %w", err)
		}
		c.dir = dir
		c.ownsDir = true
	}

	c.d = diskv.New(diskv.Options{
		BasePath:          c.dir,
		AdvancedTransform: hashToPathTransform,
		InverseTransform:  pathToHashTransform,
		CacheSizeMax:      opts.CacheSizeMax,
	})
	klog.V(1).Infof("blob cache in %s", c.dir)
	return c, nil
}

// Get returns the bytes for key, fetching them once on a miss. Concurrent misses
// for the same key share a single fetch.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if bs, ok, err := c.lookup(key); err != nil || ok {
		return bs, err
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		bs, err := c.fetcher.Fetch(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", key, err)
		}
		if err := c.store(key, bs); err != nil {
			return nil, err
		}
		return bs, nil
	})
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("blob %s fetched (shared=%v)", key, shared)
	return v.([]byte), nil
}

func (c *Cache) lookup(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, ErrClosed
	}

	h := hashKey(key)
	if !c.d.Has(h) {
		return nil, false, nil
	}

	now := c.now()
	if c.policy.Expired(key, now) {
		klog.V(2).Infof("blob %s expired", key)
		c.policy.Remove(key)
		c.erase(h)
		return nil, false, nil
	}

	bs, err := c.d.Read(h)
	if err != nil {
		klog.Warningf("read %s: %v", key, err)
		c.policy.Remove(key)
		return nil, false, nil
	}
	c.policy.Hit(key, now)
	return bs, true, nil
}

func (c *Cache) store(key string, bs []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if err := c.d.Write(hashKey(key), bs); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	now := c.now()
	c.policy.Add(key, now)
	for _, v := range c.policy.Victims(now) {
		klog.V(2).Infof("evicting blob %s", v)
		c.erase(hashKey(v))
	}
	return nil
}

func (c *Cache) erase(h string) {
	if err := c.d.Erase(h); err != nil && !errors.Is(err, os.ErrNotExist) {
		klog.Warningf("erase %s: %v", h, err)
	}
}

// Len returns the number of tracked entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Len()
}

// Purge drops every cached blob.
func (c *Cache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy.Reset()
	if err := c.d.EraseAll(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("erase all: %w", err)
	}
	return nil
}

// Close releases the cache. A directory the cache created is removed; blobs in a
// caller-provided directory stay for the next process. Further calls to Get return
// ErrClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.policy.Reset()
	if !c.ownsDir {
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove %s: %w", c.dir, err)
	}
	return nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func hashToPathTransform(h string) *diskv.PathKey {
	return &diskv.PathKey{
		Path:     []string{h[:2]},
		FileName: h,
	}
}

func pathToHashTransform(pathKey *diskv.PathKey) string {
	return pathKey.FileName
}
