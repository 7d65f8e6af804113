package telemetry

type schedulerMetrics interface {
	Metrics() (async, later, timers, cancelled, panics int64)
}

type sampler struct {
	src   Sources
	sched schedulerMetrics // nil when the scheduler has no counters
}

func newSampler(src Sources) sampler {
	s := sampler{src: src}
	if m, ok := src.Scheduler.(schedulerMetrics); ok {
		s.sched = m
	}
	return s
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	hits    uint64
	misses  uint64
	expired uint64
	evicted uint64

	flushRuns     uint64
	flushFailures uint64
	flushSkipped  uint64

	hasScheduler bool
	async        uint64
	later        uint64
	timers       uint64
	cancelled    uint64
	panics       uint64
}

func (s sampler) snapshot() snapshot {
	hits, misses, expired, evicted := s.src.Cache.Metrics()
	runs, failures, skipped := s.src.Flusher.Metrics()

	snap := snapshot{
		hits:    uint64(max(hits, 0)),
		misses:  uint64(max(misses, 0)),
		expired: uint64(max(expired, 0)),
		evicted: uint64(max(evicted, 0)),

		flushRuns:     uint64(max(runs, 0)),
		flushFailures: uint64(max(failures, 0)),
		flushSkipped:  uint64(max(skipped, 0)),
	}

	if s.sched != nil {
		async, later, timers, cancelled, panics := s.sched.Metrics()
		snap.hasScheduler = true
		snap.async = uint64(max(async, 0))
		snap.later = uint64(max(later, 0))
		snap.timers = uint64(max(timers, 0))
		snap.cancelled = uint64(max(cancelled, 0))
		snap.panics = uint64(max(panics, 0))
	}

	return snap
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hits:    delta(prev.hits, cur.hits),
		misses:  delta(prev.misses, cur.misses),
		expired: delta(prev.expired, cur.expired),
		evicted: delta(prev.evicted, cur.evicted),

		flushRuns:     delta(prev.flushRuns, cur.flushRuns),
		flushFailures: delta(prev.flushFailures, cur.flushFailures),
		flushSkipped:  delta(prev.flushSkipped, cur.flushSkipped),

		hasScheduler: cur.hasScheduler,
		async:        delta(prev.async, cur.async),
		later:        delta(prev.later, cur.later),
		timers:       delta(prev.timers, cur.timers),
		cancelled:    delta(prev.cancelled, cur.cancelled),
		panics:       delta(prev.panics, cur.panics),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
