// Package progress keeps aggregated task counters (submitted, completed,
// failed, retried...) for a single farm session. Counters are updated with
// signed deltas so one update can move a task between buckets.
package progress

import (
	"sync"
	"time"

	"github.com/viant/workerfarm/internal/clock"
)

// Delta represents an incremental counter change emitted by the farm. The
// fields are signed and therefore can be either positive or negative.
type Delta struct {
	Submitted int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Retried   int
	Abandoned int
	Rejected  int
}

// Counters is a point in time copy of the tracker
type Counters struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`

	Submitted int `json:"submitted"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Retried   int `json:"retried"`
	Abandoned int `json:"abandoned"`
	Rejected  int `json:"rejected"`
}

// Settled returns the number of tasks whose future was settled
func (c Counters) Settled() int {
	return c.Completed + c.Failed + c.Abandoned + c.Rejected
}

// Progress keeps task counters of one farm. It is safe for concurrent use.
type Progress struct {
	mux      sync.Mutex
	counters Counters
	onChange func(Counters)
}

// Update applies the supplied delta. If an onChange callback has been
// registered it is invoked with the updated counters outside the critical
// section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	c := &p.counters
	c.Submitted += d.Submitted
	c.Pending += d.Pending
	c.Running += d.Running
	c.Completed += d.Completed
	c.Failed += d.Failed
	c.Retried += d.Retried
	c.Abandoned += d.Abandoned
	c.Rejected += d.Rejected
	snapshot := p.counters
	cb := p.onChange
	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.counters
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables the callback.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

// New creates a tracker for a farm session
func New(sessionID string) *Progress {
	return &Progress{counters: Counters{SessionID: sessionID, StartedAt: clock.Now()}}
}
