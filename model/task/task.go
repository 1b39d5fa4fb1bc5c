package task

import (
	"time"

	"github.com/viant/workerfarm/internal/clock"
	"github.com/viant/workerfarm/tracing"
)

// AnyWorker marks a task that any worker may take.
const AnyWorker = -1

// State represents a task lifecycle state
type State string

const (
	StateQueued    State = "queued"
	StateAssigned  State = "assigned"
	StateCompleted State = "completed"
	StateRetrying  State = "retrying"
	StateAbandoned State = "abandoned"
)

// Task represents one scheduled call
type Task struct {
	ID               uint64        `json:"id"`
	Method           string        `json:"method"`
	Args             []interface{} `json:"args,omitempty"`
	Priority         int           `json:"priority,omitempty"`
	Key              string        `json:"key,omitempty"`
	Lane             int           `json:"lane"`
	RetriesRemaining int           `json:"retriesRemaining"`
	Attempts         int           `json:"attempts"`
	WorkerID         int           `json:"workerId"`
	Requeued         bool          `json:"requeued,omitempty"`
	State            State         `json:"state"`
	SubmittedAt      time.Time     `json:"submittedAt"`

	Future *Future       `json:"-"`
	Span   *tracing.Span `json:"-"`
}

// Settle settles the task future; only the first call takes effect
func (t *Task) Settle(value interface{}, err error) bool {
	if t.Future == nil {
		return false
	}
	return t.Future.Settle(value, err)
}

// New creates a queued task
func New(id uint64, method string, args []interface{}, retries int) *Task {
	return &Task{
		ID:               id,
		Method:           method,
		Args:             args,
		Lane:             AnyWorker,
		RetriesRemaining: retries,
		WorkerID:         AnyWorker,
		State:            StateQueued,
		SubmittedAt:      clock.Now(),
		Future:           NewFuture(id),
	}
}
