package cache

import "sync/atomic"

type counters struct {
	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64 // entries removed by their expiry task
	evicted atomic.Int64 // entries removed explicitly
}

func newCounters() *counters {
	return &counters{
		hits:    atomic.Int64{},
		misses:  atomic.Int64{},
		expired: atomic.Int64{},
		evicted: atomic.Int64{},
	}
}

func (c *counters) snapshot() (hits, misses, expired, evicted int64) {
	return c.hits.Load(), c.misses.Load(), c.expired.Load(), c.evicted.Load()
}
