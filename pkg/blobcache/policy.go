package blobcache

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Policy decides which entries a Cache keeps. Calls are serialized by the cache.
type Policy interface {
	// Add records that key was stored at now.
	Add(key string, now time.Time)
	// Hit records a read of key at now.
	Hit(key string, now time.Time)
	// Expired reports whether key must be fetched again.
	Expired(key string, now time.Time) bool
	// Victims returns keys to drop after an Add and forgets them.
	Victims(now time.Time) []string
	Remove(key string)
	Len() int
	Reset()
}

// LRU keeps at most MaxEntries entries, dropping the least recently used. A
// MaxEntries of zero or less keeps everything.
type LRU struct {
	MaxEntries int

	lru     *simplelru.LRU[string, struct{}]
	evicted []string
}

// NewLRU returns an LRU policy bounded to maxEntries entries.
func NewLRU(maxEntries int) *LRU {
	p := &LRU{MaxEntries: maxEntries}
	p.init()
	return p
}

func (p *LRU) init() {
	if p.lru != nil {
		return
	}
	size := p.MaxEntries
	if size <= 0 {
		size = math.MaxInt
	}
	l, err := simplelru.NewLRU[string, struct{}](size, func(key string, _ struct{}) {
		p.evicted = append(p.evicted, key)
	})
	if err != nil {
		panic(fmt.Sprintf("lru: %v", err))
	}
	p.lru = l
}

func (p *LRU) Add(key string, _ time.Time) {
	p.init()
	p.lru.Add(key, struct{}{})
}

// Hit also adopts blobs left on disk by an earlier process.
func (p *LRU) Hit(key string, now time.Time) {
	p.Add(key, now)
}

func (p *LRU) Expired(string, time.Time) bool { return false }

func (p *LRU) Victims(time.Time) []string {
	out := p.evicted
	p.evicted = nil
	return out
}

func (p *LRU) Remove(key string) {
	p.init()
	p.lru.Remove(key)
	p.evicted = slices.DeleteFunc(p.evicted, func(k string) bool { return k == key })
}

func (p *LRU) Len() int {
	p.init()
	return p.lru.Len()
}

func (p *LRU) Reset() {
	p.lru = nil
	p.evicted = nil
	p.init()
}

// TTL expires entries MaxAge after they were stored.
type TTL struct {
	MaxAge time.Duration

	stored map[string]time.Time
}

// NewTTL returns a TTL policy.
func NewTTL(maxAge time.Duration) *TTL {
	return &TTL{MaxAge: maxAge, stored: map[string]time.Time{}}
}

func (p *TTL) Add(key string, now time.Time) {
	if p.stored == nil {
		p.stored = map[string]time.Time{}
	}
	p.stored[key] = now
}

func (p *TTL) Hit(string, time.Time) {}

func (p *TTL) Expired(key string, now time.Time) bool {
	t, ok := p.stored[key]
	return !ok || now.Sub(t) >= p.MaxAge
}

// Victims returns every expired entry.
func (p *TTL) Victims(now time.Time) []string {
	var out []string
	for k, t := range p.stored {
		if now.Sub(t) >= p.MaxAge {
			out = append(out, k)
			delete(p.stored, k)
		}
	}
	return out
}

func (p *TTL) Remove(key string) { delete(p.stored, key) }

func (p *TTL) Len() int { return len(p.stored) }

func (p *TTL) Reset() { p.stored = map[string]time.Time{} }
