package scheduler

import "sync/atomic"

type poolCounters struct {
	async     atomic.Int64 // tasks submitted through RunTaskAsync
	overflow  atomic.Int64 // async tasks run on a dedicated goroutine (queue full or pool closed)
	later     atomic.Int64 // delayed tasks scheduled
	timers    atomic.Int64 // periodic tasks scheduled
	cancelled atomic.Int64 // timers stopped by Cancel
	panics    atomic.Int64 // recovered task panics
}

func newPoolCounters() *poolCounters {
	return &poolCounters{}
}

func (c *poolCounters) snapshot() (async, later, timers, cancelled, panics int64) {
	return c.async.Load(), c.later.Load(), c.timers.Load(), c.cancelled.Load(), c.panics.Load()
}
