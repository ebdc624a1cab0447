package lru

import (
	"sync/atomic"

	golru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultSize is used when a cache is created with a non-positive size.
const DefaultSize = 1024

// Stats reports cache effectiveness.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Len       int
}

// Cache is a bounded least-recently-used cache. When full, adding a new key
// evicts the entry that was read or written longest ago.
type Cache[K comparable, V any] struct {
	name      string
	inner     *golru.Cache[K, V]
	logger    *zap.Logger
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](name string, size int, logger *zap.Logger) *Cache[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache[K, V]{
		name:   name,
		logger: logger.With(zap.String("cache", name)),
	}
	// only fails for non-positive sizes
	inner, _ := golru.NewWithEvict[K, V](size, func(K, V) {
		c.evictions.Add(1)
	})
	c.inner = inner
	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if ce := c.logger.Check(zap.DebugLevel, "cache lookup"); ce != nil {
		ce.Write(zap.Any("key", key), zap.Bool("hit", ok))
	}
	return v, ok
}

func (c *Cache[K, V]) Add(key K, value V) {
	c.inner.Add(key, value)
}

func (c *Cache[K, V]) Remove(key K) {
	c.inner.Remove(key)
}

// RemoveIf drops every entry whose key matches.
func (c *Cache[K, V]) RemoveIf(match func(K) bool) int {
	removed := 0
	for _, k := range c.inner.Keys() {
		if match(k) {
			c.inner.Remove(k)
			removed++
		}
	}
	return removed
}

func (c *Cache[K, V]) Purge() {
	c.inner.Purge()
}

func (c *Cache[K, V]) Len() int {
	return c.inner.Len()
}

func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.inner.Len(),
	}
}
