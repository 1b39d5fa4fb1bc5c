package worker

import "time"

// Status represents a worker lifecycle status
type Status string

const (
	StatusStarting   Status = "starting"
	StatusIdle       Status = "idle"
	StatusBusy       Status = "busy"
	StatusRestarting Status = "restarting"
	StatusDead       Status = "dead"
)

// State is a snapshot of one pool worker
type State struct {
	ID                  int       `json:"id"`
	Status              Status    `json:"status"`
	CurrentTaskID       uint64    `json:"currentTaskId,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Restarts            int       `json:"restarts"`
	InstanceID          string    `json:"instanceId,omitempty"`
	StartedAt           time.Time `json:"startedAt"`
}

// Idle returns ids of idle workers in id order
func Idle(states []State) []int {
	var ret []int
	for _, state := range states {
		if state.Status == StatusIdle {
			ret = append(ret, state.ID)
		}
	}
	return ret
}
