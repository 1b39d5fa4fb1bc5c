package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFarmEnded is returned for every call submitted after End or KillAndDrain.
	ErrFarmEnded = errors.New("farm is ended, no more calls can be done to it")

	// ErrPoolEnded is returned when a worker pool is ended twice.
	ErrPoolEnded = errors.New("worker pool already ended")

	// ErrWorkerNotIdle is returned when a task is sent to a worker that is not idle.
	ErrWorkerNotIdle = errors.New("worker is not idle")

	// ErrMethodNotFound is returned when calling a method that is not exposed.
	ErrMethodNotFound = errors.New("method not found")

	// ErrWorkerDead is settled on tasks that can only run on a worker that stopped restarting.
	ErrWorkerDead = errors.New("worker is dead")
)

// NewMethodNotFoundError returns method not found error
func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v: %w", name, ErrMethodNotFound)
}

// StartupError is returned when a worker fails to report ready in time.
type StartupError struct {
	WorkerID int
	Timeout  time.Duration
	Err      error
}

func (e *StartupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("worker %d did not report ready within %s", e.WorkerID, e.Timeout)
	}
	return fmt.Sprintf("worker %d failed to start: %v", e.WorkerID, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// WorkerCrashError reports a worker transport closed while a task was in flight.
type WorkerCrashError struct {
	WorkerID int
	TaskID   uint64
	Err      error
}

func (e *WorkerCrashError) Error() string {
	msg := fmt.Sprintf("worker %d exited unexpectedly", e.WorkerID)
	if e.TaskID != 0 {
		msg += fmt.Sprintf(" while running task %d", e.TaskID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WorkerCrashError) Unwrap() error { return e.Err }

// RetriesExhaustedError is settled on a task whose workers kept crashing.
type RetriesExhaustedError struct {
	TaskID   uint64
	Method   string
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("task %d (%s) failed after %d attempts: max retries exceeded: %v", e.TaskID, e.Method, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// DuplicateMethodError is returned when an exposed name is declared twice or
// shadows a facade method.
type DuplicateMethodError struct {
	Name string
}

func (e *DuplicateMethodError) Error() string {
	return fmt.Sprintf("duplicate method name: %v", e.Name)
}

// TaskError carries a handler error reported by a worker over the wire.
type TaskError struct {
	Method  string
	Message string
}

func (e *TaskError) Error() string {
	if e.Method == "" {
		return e.Message
	}
	return e.Method + ": " + e.Message
}
