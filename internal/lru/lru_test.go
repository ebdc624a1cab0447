package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	c := New[string, int]("test", 2, nil)

	c.Add("a", 1)
	c.Add("b", 2)
	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Add("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was the least recently used entry")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Len)
}

func TestCacheRemoveIf(t *testing.T) {
	t.Parallel()
	c := New[int, string]("test", 0, nil)
	for i := 0; i < 10; i++ {
		c.Add(i, "v")
	}

	removed := c.RemoveIf(func(k int) bool { return k%2 == 0 })

	assert.Equal(t, 5, removed)
	assert.Equal(t, 5, c.Len())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
