package flusher

import "sync/atomic"

type flusherCounters struct {
	runs     atomic.Int64 // flushes started
	failures atomic.Int64 // flushes returned an error
	skipped  atomic.Int64 // activations skipped because the previous flush was still running
}

func newFlusherCounters() *flusherCounters {
	return &flusherCounters{
		runs:     atomic.Int64{},
		failures: atomic.Int64{},
		skipped:  atomic.Int64{},
	}
}

func (c *flusherCounters) snapshot() (runs, failures, skipped int64) {
	runs = c.runs.Load()
	failures = c.failures.Load()
	skipped = c.skipped.Load()
	return
}
