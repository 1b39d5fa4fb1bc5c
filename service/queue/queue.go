// Package queue holds tasks that were submitted but not yet handed to a
// worker. Every queue keeps a shared lane plus one lane per worker that has
// tasks bound to it by sticky routing.
package queue

import (
	"fmt"
	"strings"

	"github.com/viant/workerfarm/model/task"
)

const (
	KindFIFO     = "fifo"
	KindPriority = "priority"
)

// Queue represents pending tasks
type Queue interface {
	// Enqueue adds a task to its lane
	Enqueue(t *task.Task)

	// Requeue returns a retried task to the front of its priority tier
	Requeue(t *task.Task)

	// Restore puts back a dequeued task at its original position
	Restore(t *task.Task)

	// Dequeue removes the next task eligible for workerID, nil when none
	Dequeue(workerID int) *task.Task

	// Size returns the number of queued tasks
	Size() int

	// Drain removes and returns all queued tasks, requeued first
	Drain() []*task.Task
}

// New creates a queue by kind
func New(kind string) (Queue, error) {
	switch strings.ToLower(kind) {
	case "", KindFIFO:
		return NewFIFO(), nil
	case KindPriority:
		return NewPriority(), nil
	}
	return nil, fmt.Errorf("unsupported queue: %v", kind)
}

// before orders tasks with equal priority: requeued first, then submission order.
func before(a, b *task.Task) bool {
	if a.Requeued != b.Requeued {
		return a.Requeued
	}
	return a.ID < b.ID
}

// beforeByPriority orders by priority descending, then before.
func beforeByPriority(a, b *task.Task) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return before(a, b)
}

// pick chooses between the worker lane head and the shared lane head.
func pick(own, shared *task.Task, less func(a, b *task.Task) bool) (*task.Task, bool) {
	switch {
	case own == nil:
		return shared, false
	case shared == nil:
		return own, true
	case less(shared, own):
		return shared, false
	default:
		return own, true
	}
}
