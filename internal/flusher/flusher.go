package flusher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/scheduler"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Flusher interface {
	// Reset cancels the pending flush and schedules the next one from now.
	Reset()
	Metrics() (runs, failures, skipped int64)
	Close() error
}

// FlushWorker periodically reconciles a container's pending changes with its backend.
// It fires either every FlushRate or on the FlushSchedule cron spec.
type FlushWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Settings
	sched    scheduler.Scheduler
	logger   *slog.Logger
	flush    func(ctx context.Context) error
	schedule cron.Schedule // nil in fixed-rate mode
	counters *flusherCounters
	running  atomic.Bool

	mu   sync.Mutex
	task *scheduler.Task
}

// New starts the flush task. It returns a NoOpFlusher when automatic flushing is disabled
// and an error if the cron spec cannot be parsed.
func New(
	ctx context.Context,
	cfg *config.Settings,
	sched scheduler.Scheduler,
	flush func(ctx context.Context) error,
	logger *slog.Logger,
) (Flusher, error) {
	if !cfg.IsAutoFlushEnabled() {
		return &NoOpFlusher{}, nil
	}

	var schedule cron.Schedule
	if cfg.FlushSchedule != "" {
		var err error
		if schedule, err = cronParser.Parse(cfg.FlushSchedule); err != nil {
			return nil, fmt.Errorf("parse flush schedule %q: %w", cfg.FlushSchedule, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&FlushWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		sched:    sched,
		logger:   logger,
		flush:    flush,
		schedule: schedule,
		counters: newFlusherCounters(),
	}).run(), nil
}

func (w *FlushWorker) Reset() {
	if w.ctx.Err() != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rescheduleUnlocked()
}

func (w *FlushWorker) Metrics() (runs, failures, skipped int64) {
	return w.counters.snapshot()
}

func (w *FlushWorker) Close() error {
	w.cancel()

	w.mu.Lock()
	if w.task != nil {
		w.sched.Cancel(w.task)
		w.task = nil
	}
	w.mu.Unlock()

	w.logger.Info("flusher is stopped")
	return nil
}

func (w *FlushWorker) run() *FlushWorker {
	if w.schedule != nil {
		w.logger.Info("flusher is running", "schedule", w.cfg.FlushSchedule)
	} else {
		w.logger.Info("flusher is running", "rate", w.cfg.FlushRate.String())
	}

	w.mu.Lock()
	w.rescheduleUnlocked()
	w.mu.Unlock()

	return w
}

func (w *FlushWorker) rescheduleUnlocked() {
	if w.task != nil {
		w.sched.Cancel(w.task)
	}

	if w.schedule == nil {
		w.task = scheduler.NewTask("flush", w.consumer)
		w.sched.RunTaskTimer(w.task, w.cfg.FlushRate, w.cfg.FlushRate)
		return
	}

	// cron mode: one delayed task per activation, the next one is planned after each run
	var task *scheduler.Task
	task = scheduler.NewTask("flush", func() {
		w.consumer()

		w.mu.Lock()
		if w.task == task && w.ctx.Err() == nil {
			w.planNextUnlocked(task)
		}
		w.mu.Unlock()
	})
	w.task = task
	w.planNextUnlocked(task)
}

func (w *FlushWorker) planNextUnlocked(task *scheduler.Task) {
	now := time.Now()
	w.sched.RunTaskLater(task, w.schedule.Next(now).Sub(now))
}

func (w *FlushWorker) consumer() {
	if w.ctx.Err() != nil {
		return
	}
	if !w.running.CompareAndSwap(false, true) {
		w.counters.skipped.Add(1)
		return
	}
	defer w.running.Store(false)

	w.counters.runs.Add(1)
	if err := w.flush(w.ctx); err != nil {
		w.counters.failures.Add(1)
		w.logger.Error("scheduled flush failed", "err", err)
	}
}
