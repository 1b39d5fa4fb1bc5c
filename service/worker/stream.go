package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
)

const (
	// EnvChild is set to 1 in the environment of process workers
	EnvChild = "WORKERFARM_CHILD"
	// EnvWorkerID carries the worker id of a process worker
	EnvWorkerID = "WORKERFARM_WORKER_ID"

	requestFd  = 3
	responseFd = 4
)

// StreamConn exchanges JSON line encoded messages over a reader/writer pair
type StreamConn struct {
	decoder *json.Decoder
	mu      sync.Mutex
	writer  *bufio.Writer
	encoder *json.Encoder
}

// Receive decodes the next message; ctx is honoured between messages only
func (c *StreamConn) Receive(ctx context.Context) (*task.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg := &task.Message{}
	if err := c.decoder.Decode(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Send encodes and flushes a message
func (c *StreamConn) Send(msg *task.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.encoder.Encode(msg); err != nil {
		if msg.Kind != task.KindResult {
			return err
		}
		// unserialisable result becomes a task error
		fallback := &task.Message{Kind: task.KindError, WorkerID: msg.WorkerID, TaskID: msg.TaskID, Method: msg.Method,
			Error: fmt.Sprintf("failed to encode result: %v", err)}
		if err = c.encoder.Encode(fallback); err != nil {
			return err
		}
	}
	return c.writer.Flush()
}

// NewStreamConn creates a connection over r and w
func NewStreamConn(r io.Reader, w io.Writer) *StreamConn {
	writer := bufio.NewWriter(w)
	return &StreamConn{decoder: json.NewDecoder(r), writer: writer, encoder: json.NewEncoder(writer)}
}

// IsChild reports whether this process was started as a farm process worker
func IsChild() bool {
	return os.Getenv(EnvChild) == "1"
}

// ServeProcess serves methods over the pipes inherited from the parent farm
func ServeProcess(ctx context.Context, methods types.Methods) error {
	if !IsChild() {
		return fmt.Errorf("%v is not set, not started by a farm", EnvChild)
	}
	workerID, err := strconv.Atoi(os.Getenv(EnvWorkerID))
	if err != nil {
		return fmt.Errorf("invalid %v: %w", EnvWorkerID, err)
	}
	requests := os.NewFile(requestFd, "farm-requests")
	responses := os.NewFile(responseFd, "farm-responses")
	defer requests.Close()
	defer responses.Close()
	return Serve(ctx, workerID, methods, NewStreamConn(requests, responses), os.Stdout, os.Stderr)
}
