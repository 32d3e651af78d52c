package fetcher

import (
	"sync"
	"sync/atomic"
)

// Cache holds directory listings for the current run. It is cleared whenever
// it grows past its limit; listings are only reused within one repository's
// detection pass.
type Cache struct {
	data  sync.Map
	size  atomic.Int64
	limit int64
}

func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = 512
	}
	return &Cache{limit: int64(limit)}
}

func (c *Cache) Get(key string) (any, bool) {
	return c.data.Load(key)
}

func (c *Cache) Set(key string, value any) {
	if _, ok := c.data.Load(key); !ok && c.size.Load() >= c.limit {
		c.Clear()
	}
	if _, loaded := c.data.Swap(key, value); !loaded {
		c.size.Add(1)
	}
}

func (c *Cache) Len() int {
	return int(c.size.Load())
}

func (c *Cache) Clear() {
	c.data.Range(func(k, _ any) bool {
		c.data.Delete(k)
		return true
	})
	c.size.Store(0)
}
