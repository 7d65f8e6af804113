package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-storage/config"
)

// Pool is the default Scheduler: a fixed set of workers reading a buffered queue,
// plus runtime timers for delayed and periodic tasks.
type Pool struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.SchedulerCfg
	logger   *slog.Logger
	counters *poolCounters

	mu     sync.RWMutex // guards closed and sends into queue
	closed bool
	queue  chan *Task

	tmu    sync.Mutex
	timers map[*Task]map[*handle]struct{}
}

// handle is one pending schedule of a task.
type handle struct {
	once  sync.Once
	timer *time.Timer
	stop  chan struct{}
}

func (h *handle) cancel() {
	h.once.Do(func() {
		if h.timer != nil {
			h.timer.Stop()
		}
		close(h.stop)
	})
}

func New(ctx context.Context, cfg *config.SchedulerCfg, logger *slog.Logger) *Pool {
	if cfg == nil {
		cfg = config.DefaultScheduler()
	}
	cfg.AdjustConfig()

	ctx, cancel := context.WithCancel(ctx)
	return (&Pool{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		counters: newPoolCounters(),
		queue:    make(chan *Task, cfg.QueueSize),
		timers:   make(map[*Task]map[*handle]struct{}),
	}).run()
}

func (p *Pool) RunTaskAsync(t *Task) {
	p.counters.async.Add(1)
	p.dispatch(t)
}

// dispatch hands t to a worker, or to a fresh goroutine when the queue is full or closed.
func (p *Pool) dispatch(t *Task) {
	p.mu.RLock()
	if !p.closed {
		select {
		case p.queue <- t:
			p.mu.RUnlock()
			return
		default:
		}
	}
	p.mu.RUnlock()

	p.counters.overflow.Add(1)
	go p.execute(t)
}

func (p *Pool) RunTaskLater(t *Task, delay time.Duration) {
	if p.ctx.Err() != nil {
		p.logger.Debug("scheduler is closed, delayed task dropped", "task", t.name)
		return
	}
	p.counters.later.Add(1)

	h := &handle{stop: make(chan struct{})}

	// The callback forgets h under tmu, so it cannot observe h before the timer is assigned.
	p.tmu.Lock()
	h.timer = time.AfterFunc(max(delay, 0), func() {
		p.forget(t, h)
		select {
		case <-h.stop:
			return
		case <-p.ctx.Done():
			return
		default:
		}
		p.execute(t)
	})
	p.trackUnlocked(t, h)
	p.tmu.Unlock()
}

func (p *Pool) RunTaskTimer(t *Task, delay, period time.Duration) {
	if period <= 0 {
		p.RunTaskLater(t, delay)
		return
	}
	if p.ctx.Err() != nil {
		p.logger.Debug("scheduler is closed, periodic task dropped", "task", t.name)
		return
	}
	p.counters.timers.Add(1)

	h := &handle{stop: make(chan struct{})}
	p.track(t, h)

	go func() {
		defer p.forget(t, h)

		first := time.NewTimer(max(delay, 0))
		defer first.Stop()

		select {
		case <-p.ctx.Done():
			return
		case <-h.stop:
			return
		case <-first.C:
			p.dispatch(t)
		}

		tick := time.NewTicker(period)
		defer tick.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-h.stop:
				return
			case <-tick.C:
				p.dispatch(t)
			}
		}
	}()
}

func (p *Pool) Cancel(t *Task) {
	p.tmu.Lock()
	handles := p.timers[t]
	delete(p.timers, t)
	p.tmu.Unlock()

	for h := range handles {
		h.cancel()
		p.counters.cancelled.Add(1)
	}
}

// Pending returns the number of tasks with a scheduled, not yet fired run.
func (p *Pool) Pending() int {
	p.tmu.Lock()
	defer p.tmu.Unlock()
	return len(p.timers)
}

func (p *Pool) Metrics() (async, later, timers, cancelled, panics int64) {
	return p.counters.snapshot()
}

// Close stops the workers once the queue is drained and cancels every pending timer.
// Async tasks submitted after Close still run, each on its own goroutine.
func (p *Pool) Close() error {
	p.cancel()

	p.tmu.Lock()
	timers := p.timers
	p.timers = make(map[*Task]map[*handle]struct{})
	p.tmu.Unlock()

	for _, handles := range timers {
		for h := range handles {
			h.cancel()
		}
	}
	return nil
}

func (p *Pool) run() *Pool {
	p.logger.Info("scheduler is running", "workers", p.cfg.Workers, "queue_size", p.cfg.QueueSize)

	go func() {
		defer p.logger.Info("scheduler is stopped")
		var wg sync.WaitGroup
		for i := 0; i < p.cfg.Workers; i++ {
			wg.Go(p.consumer)
		}
		wg.Go(p.supervisor)
		wg.Wait()
	}()

	return p
}

// supervisor closes the queue after ctx is done, so consumers drain what is left and exit.
func (p *Pool) supervisor() {
	<-p.ctx.Done()

	p.mu.Lock()
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
}

func (p *Pool) consumer() {
	for t := range p.queue {
		p.execute(t)
	}
}

func (p *Pool) execute(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			p.counters.panics.Add(1)
			p.logger.Error("task panicked", "task", t.name, "id", t.id.String(), "panic", r)
		}
	}()
	t.fn()
}

func (p *Pool) track(t *Task, h *handle) {
	p.tmu.Lock()
	p.trackUnlocked(t, h)
	p.tmu.Unlock()
}

func (p *Pool) trackUnlocked(t *Task, h *handle) {
	handles, ok := p.timers[t]
	if !ok {
		handles = make(map[*handle]struct{}, 1)
		p.timers[t] = handles
	}
	handles[h] = struct{}{}
}

func (p *Pool) forget(t *Task, h *handle) {
	p.tmu.Lock()
	if handles, ok := p.timers[t]; ok {
		delete(handles, h)
		if len(handles) == 0 {
			delete(p.timers, t)
		}
	}
	p.tmu.Unlock()
}
