package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/cache"
	"github.com/Borislavv/go-ash-storage/internal/flusher"
	"github.com/Borislavv/go-ash-storage/scheduler"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

// Sources are the components whose counters are reported.
// Scheduler is optional: it is sampled only when it exposes Metrics.
type Sources struct {
	Cache     cache.Cacher
	Pending   *cache.Pending
	Flusher   flusher.Flusher
	Scheduler scheduler.Scheduler
}

// Logs periodically logs per-interval deltas of the storage counters.
type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.TelemetryCfg
	logger   *slog.Logger
	src      Sources
	interval time.Duration
}

func New(ctx context.Context, cfg *config.TelemetryCfg, logger *slog.Logger, src Sources) Logger {
	if !cfg.Enabled() || cfg.Interval <= 0 {
		return &NoOpLogger{}
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		src:      src,
		interval: cfg.Interval,
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	return nil
}

func (l *Logs) run() *Logs {
	go l.loop()
	return l
}

func (l *Logs) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	s := newSampler(l.src)
	prev := s.snapshot()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := s.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			l.report(d)
		}
	}
}

func (l *Logs) report(d snapshot) {
	common := []any{"interval", l.interval.String()}

	l.logger.Info("storage",
		append(common,
			"entries", l.src.Cache.Len(),
			"hits", int64(d.hits),
			"misses", int64(d.misses),
			"expired", int64(d.expired),
			"evicted", int64(d.evicted),
		)...,
	)

	writes, deletes := l.src.Pending.Len()
	l.logger.Info("flusher",
		append(common,
			"pending_writes", writes,
			"pending_deletes", deletes,
			"runs", int64(d.flushRuns),
			"failures", int64(d.flushFailures),
			"skipped", int64(d.flushSkipped),
		)...,
	)

	if d.hasScheduler {
		l.logger.Info("scheduler",
			append(common,
				"async", int64(d.async),
				"later", int64(d.later),
				"timers", int64(d.timers),
				"cancelled", int64(d.cancelled),
				"panics", int64(d.panics),
			)...,
		)
	}
}
