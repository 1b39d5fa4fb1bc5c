// Package transport defines the message channel between the pool and one
// worker. A channel carries call/exit requests in and ready/result/error
// messages out; the worker exiting closes the outbound stream.
package transport

import (
	"context"
	"errors"
	"io"

	"github.com/viant/workerfarm/model/task"
)

// ErrClosed is returned when sending to a worker that exited
var ErrClosed = errors.New("transport: channel closed")

// Transport starts workers
type Transport interface {
	// Start launches a worker; the first message it emits is ready
	Start(ctx context.Context, workerID int) (Channel, error)
}

// Channel represents a running worker
type Channel interface {
	// Send delivers a message to the worker
	Send(msg *task.Message) error

	// Messages streams worker messages; closed once the worker exited
	Messages() <-chan *task.Message

	// Err returns the exit reason once Messages is closed; nil on clean exit
	Err() error

	// Stdout returns worker standard output, nil when not captured
	Stdout() io.Reader

	// Stderr returns worker standard error, nil when not captured
	Stderr() io.Reader

	// Stop asks the worker to exit, killing it when ctx is done first
	Stop(ctx context.Context) error

	// Kill terminates the worker immediately
	Kill() error
}
