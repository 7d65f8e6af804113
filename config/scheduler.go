package config

import "runtime"

const defaultQueueSize = 1024

// SchedulerCfg configures the default task scheduler pool.
type SchedulerCfg struct {
	// Workers is the number of long-lived goroutines consuming async tasks.
	// Defaults to GOMAXPROCS.
	Workers int `yaml:"workers"`

	// QueueSize is the capacity of the async task queue.
	// When the queue is full, tasks run on a dedicated goroutine instead of blocking the caller.
	QueueSize int `yaml:"queue_size"`
}

func DefaultScheduler() *SchedulerCfg {
	cfg := &SchedulerCfg{}
	cfg.AdjustConfig()
	return cfg
}

func (cfg *SchedulerCfg) AdjustConfig() {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
}
