package scheduler

import "github.com/google/uuid"

// Task is a unit of work submitted to a Scheduler.
// The pointer itself identifies the task: Cancel(t) stops every pending run of t.
type Task struct {
	id   uuid.UUID
	name string
	fn   func()
}

func NewTask(name string, fn func()) *Task {
	return &Task{id: uuid.New(), name: name, fn: fn}
}

func (t *Task) ID() uuid.UUID { return t.id }
func (t *Task) Name() string  { return t.name }
func (t *Task) Run()          { t.fn() }
