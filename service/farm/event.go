package farm

import (
	"time"

	"github.com/viant/workerfarm/internal/clock"
	"github.com/viant/workerfarm/model/task"
)

// EventType represents a task lifecycle event
type EventType string

const (
	EventQueued     EventType = "queued"
	EventDispatched EventType = "dispatched"
	EventCompleted  EventType = "completed"
	EventFailed     EventType = "failed"
	EventRetried    EventType = "retried"
	EventAbandoned  EventType = "abandoned"
	EventRejected   EventType = "rejected"
)

// Event describes a task transition
type Event struct {
	Type      EventType `json:"type"`
	TaskID    uint64    `json:"taskId"`
	Method    string    `json:"method"`
	WorkerID  int       `json:"workerId"`
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Listener receives farm events. It runs under the farm lock and must not call back into the farm.
type Listener func(event *Event)

func newEvent(eventType EventType, t *task.Task, err error) *Event {
	ret := &Event{
		Type:      eventType,
		TaskID:    t.ID,
		Method:    t.Method,
		WorkerID:  t.WorkerID,
		Attempt:   t.Attempts,
		CreatedAt: clock.Now(),
	}
	if err != nil {
		ret.Error = err.Error()
	}
	return ret
}
