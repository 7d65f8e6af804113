// Package scheduler runs storage background work: asynchronous backend calls,
// delayed cache expiry and periodic flushes.
package scheduler

import "time"

type Scheduler interface {
	// RunTaskAsync runs t as soon as possible without blocking the caller.
	RunTaskAsync(t *Task)
	// RunTaskLater runs t once after delay.
	RunTaskLater(t *Task, delay time.Duration)
	// RunTaskTimer runs t after delay and then every period until cancelled.
	RunTaskTimer(t *Task, delay, period time.Duration)
	// Cancel stops pending runs of t. Cancelling a task that already ran is a no-op.
	Cancel(t *Task)
}
