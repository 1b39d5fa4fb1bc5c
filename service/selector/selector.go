// Package selector decides which worker receives a task.
//
// A Policy does two things: it binds a task to a lane when submitted (a
// worker id for sticky routing, task.AnyWorker otherwise) and it orders the
// idle workers that are offered work on every dispatch pass.
package selector

import (
	"fmt"
	"strings"

	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/worker"
)

const (
	RoundRobinPolicy = "round-robin"
	InOrderPolicy    = "in-order"
)

// Policy represents a worker selection policy
type Policy interface {
	// Bind returns the lane for a task given the pool size
	Bind(t *task.Task, workers int) int

	// Candidates returns idle worker ids in the order they are offered work
	Candidates(states []worker.State) []int
}

// KeyFunc computes a sticky routing key; empty key means any worker
type KeyFunc func(method string, args []interface{}) string

// New creates a policy by scheduling name, wrapped in sticky routing when key is set
func New(name string, key KeyFunc) (Policy, error) {
	var ret Policy
	switch strings.ToLower(name) {
	case "", RoundRobinPolicy:
		ret = NewRoundRobin()
	case InOrderPolicy:
		ret = NewInOrder()
	default:
		return nil, fmt.Errorf("unsupported worker scheduling policy: %v", name)
	}
	if key != nil {
		ret = NewSticky(ret, key)
	}
	return ret, nil
}
