package selector

import (
	"github.com/cespare/xxhash/v2"
	"github.com/viant/toolbox"
	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/worker"
)

// Sticky binds every task with a non empty key to the worker its key hashes
// to. A bound task waits for that worker; it never migrates. A replacement
// worker keeps the id, so the binding survives restarts.
type Sticky struct {
	base Policy
	key  KeyFunc
}

// Bind hashes the task key to a worker id
func (p *Sticky) Bind(t *task.Task, workers int) int {
	if t.Key == "" {
		t.Key = p.key(t.Method, t.Args)
	}
	if t.Key == "" || workers <= 0 {
		return p.base.Bind(t, workers)
	}
	return int(xxhash.Sum64String(t.Key) % uint64(workers))
}

// Candidates delegates to the scheduling policy
func (p *Sticky) Candidates(states []worker.State) []int {
	return p.base.Candidates(states)
}

// NewSticky wraps base with key based routing
func NewSticky(base Policy, key KeyFunc) *Sticky {
	return &Sticky{base: base, key: key}
}

// KeyByArg builds a key function from the argument at index
func KeyByArg(index int) KeyFunc {
	return func(_ string, args []interface{}) string {
		if index < 0 || index >= len(args) || args[index] == nil {
			return ""
		}
		return toolbox.AsString(args[index])
	}
}

// KeyByMethod routes all calls of one method to the same worker
func KeyByMethod(method string, _ []interface{}) string {
	return method
}
