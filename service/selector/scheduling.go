package selector

import (
	"sync"

	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/worker"
)

// InOrder always offers work to the lowest idle worker id first
type InOrder struct{}

// Bind leaves the task unbound
func (p *InOrder) Bind(_ *task.Task, _ int) int { return task.AnyWorker }

// Candidates returns idle workers by id
func (p *InOrder) Candidates(states []worker.State) []int {
	return worker.Idle(states)
}

// NewInOrder creates an in-order policy
func NewInOrder() *InOrder { return &InOrder{} }

// RoundRobin rotates the first worker offered work on every pass
type RoundRobin struct {
	mu     sync.Mutex
	offset int
}

// Bind leaves the task unbound
func (p *RoundRobin) Bind(_ *task.Task, _ int) int { return task.AnyWorker }

// Candidates returns idle workers starting from the rotating offset
func (p *RoundRobin) Candidates(states []worker.State) []int {
	if len(states) == 0 {
		return nil
	}
	p.mu.Lock()
	start := p.offset % len(states)
	p.offset = (p.offset + 1) % len(states)
	p.mu.Unlock()
	ret := make([]int, 0, len(states))
	for i := 0; i < len(states); i++ {
		state := states[(start+i)%len(states)]
		if state.Status == worker.StatusIdle {
			ret = append(ret, state.ID)
		}
	}
	return ret
}

// NewRoundRobin creates a round-robin policy
func NewRoundRobin() *RoundRobin { return &RoundRobin{} }
