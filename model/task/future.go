package task

import (
	"context"
	"sync"
)

// Future is the completion handle of a task. Exactly one of value or error
// is delivered, once.
type Future struct {
	TaskID uint64
	done   chan struct{}
	once   sync.Once
	value  interface{}
	err    error
}

// Settle stores the outcome; it returns false when the future was already settled
func (f *Future) Settle(value interface{}, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the future is settled
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking; ok is false while pending
func (f *Future) Result() (value interface{}, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		return nil, nil, false
	}
}

// NewFuture creates a pending future
func NewFuture(taskID uint64) *Future {
	return &Future{TaskID: taskID, done: make(chan struct{})}
}

// Rejected creates a future already settled with err
func Rejected(taskID uint64, err error) *Future {
	ret := NewFuture(taskID)
	ret.Settle(nil, err)
	return ret
}
