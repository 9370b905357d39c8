package nodestore

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"
)

// Cache is a read cache for the stored nodes keyed by their storage keys.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key []byte) ([]byte, bool)
	Add(key, value []byte)
	Remove(key []byte)
}

// lruCache keeps a fixed number of nodes.
type lruCache struct {
	c *lru.Cache
}

// NewLRUCache returns a Cache holding at most size nodes.
func NewLRUCache(size int) (Cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("can't create LRU cache: %w", err)
	}
	return &lruCache{c: c}, nil
}

func (l *lruCache) Get(key []byte) ([]byte, bool) {
	v, ok := l.c.Get(string(key))
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (l *lruCache) Add(key, value []byte) {
	l.c.Add(string(key), value)
}

func (l *lruCache) Remove(key []byte) {
	l.c.Remove(string(key))
}

// maxFastCacheEntry is the entry size limit of fastcache, bigger entries are
// silently dropped by it.
const maxFastCacheEntry = 64 * 1024

// fastCache keeps nodes up to the given memory size.
type fastCache struct {
	c *fastcache.Cache
}

// NewFastCache returns a Cache limited by maxBytes of memory. Nodes bigger
// than 64K are not cached.
func NewFastCache(maxBytes int) Cache {
	return &fastCache{c: fastcache.New(maxBytes)}
}

func (f *fastCache) Get(key []byte) ([]byte, bool) {
	return f.c.HasGet(nil, key)
}

func (f *fastCache) Add(key, value []byte) {
	if len(key)+len(value) >= maxFastCacheEntry {
		f.c.Del(key)
		return
	}
	f.c.Set(key, value)
}

func (f *fastCache) Remove(key []byte) {
	f.c.Del(key)
}

// NoCache is a Cache that keeps nothing.
type NoCache struct{}

// Get implements the Cache interface.
func (NoCache) Get([]byte) ([]byte, bool) { return nil, false }

// Add implements the Cache interface.
func (NoCache) Add(_, _ []byte) {}

// Remove implements the Cache interface.
func (NoCache) Remove([]byte) {}
