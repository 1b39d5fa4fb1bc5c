package types

import (
	"context"
	"io"
)

type contextKey string

var (
	workerIDKey = contextKey("worker-id")
	stdoutKey   = contextKey("worker-stdout")
	stderrKey   = contextKey("worker-stderr")
)

// WithWorker returns a context carrying the worker id and its output streams
func WithWorker(ctx context.Context, workerID int, stdout, stderr io.Writer) context.Context {
	ctx = context.WithValue(ctx, workerIDKey, workerID)
	if stdout != nil {
		ctx = context.WithValue(ctx, stdoutKey, stdout)
	}
	if stderr != nil {
		ctx = context.WithValue(ctx, stderrKey, stderr)
	}
	return ctx
}

// WorkerID returns id of the worker running the current handler
func WorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerIDKey).(int)
	return id, ok
}

// Stdout returns the worker stdout, io.Discard outside a worker
func Stdout(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(stdoutKey).(io.Writer); ok {
		return w
	}
	return io.Discard
}

// Stderr returns the worker stderr, io.Discard outside a worker
func Stderr(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(stderrKey).(io.Writer); ok {
		return w
	}
	return io.Discard
}
