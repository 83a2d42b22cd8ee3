package utilities

import (
	"sync"

	"github.com/antonio-alexander/go-employee-facade/internal/data"
)

type hitMiss struct {
	hits   int
	misses int
}

type cacheCounter struct {
	sync.RWMutex
	keys map[string]hitMiss
}

// Counter tracks cache hits and misses per key (e.g. employees or
// employee_<id>)
type Counter interface {
	Read(key string) (hitCount, missCount int)
	ReadAll() *data.CacheCounters
	IncrementHit(key string) (hitCount int)
	IncrementMiss(key string) (missCount int)
	Reset()
}

func NewCounter() Counter {
	return &cacheCounter{keys: make(map[string]hitMiss)}
}

func (c *cacheCounter) increment(key string, hit bool) hitMiss {
	c.Lock()
	defer c.Unlock()

	value := c.keys[key]
	if hit {
		value.hits++
	} else {
		value.misses++
	}
	c.keys[key] = value
	return value
}

// Read returns -1 for both counts if the key was never counted
func (c *cacheCounter) Read(key string) (int, int) {
	c.RLock()
	defer c.RUnlock()

	value, found := c.keys[key]
	if !found {
		return -1, -1
	}
	return value.hits, value.misses
}

func (c *cacheCounter) ReadAll() *data.CacheCounters {
	c.RLock()
	defer c.RUnlock()

	counters := &data.CacheCounters{
		CounterHits:   make(map[string]int, len(c.keys)),
		CounterMisses: make(map[string]int, len(c.keys)),
	}
	for key, value := range c.keys {
		counters.CounterHits[key] = value.hits
		counters.CounterMisses[key] = value.misses
	}
	return counters
}

func (c *cacheCounter) Reset() {
	c.Lock()
	defer c.Unlock()

	clear(c.keys)
}

func (c *cacheCounter) IncrementHit(key string) int {
	return c.increment(key, true).hits
}

func (c *cacheCounter) IncrementMiss(key string) int {
	return c.increment(key, false).misses
}
