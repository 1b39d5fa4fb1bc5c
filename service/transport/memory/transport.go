// Package memory runs workers as goroutines in the host process. A handler
// panic is recovered at the worker boundary and ends that worker only, the
// same way a crashing child process would.
package memory

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"sync"

	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
	"github.com/viant/workerfarm/service/transport"
	"github.com/viant/workerfarm/service/worker"
)

// Transport starts goroutine workers serving methods
type Transport struct {
	methods types.Methods
}

// Start launches a worker goroutine
func (t *Transport) Start(_ context.Context, workerID int) (transport.Channel, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &Channel{
		workerID: workerID,
		in:       make(chan *task.Message, 1),
		out:      make(chan *task.Message, 4),
		messages: make(chan *task.Message),
		exited:   make(chan struct{}),
		killed:   make(chan struct{}),
		cancel:   cancel,
	}
	var stdoutW, stderrW *io.PipeWriter
	ch.stdout, stdoutW = io.Pipe()
	ch.stderr, stderrW = io.Pipe()
	go ch.pump()
	go ch.run(ctx, t.methods, stdoutW, stderrW)
	return ch, nil
}

// New creates a goroutine transport
func New(methods types.Methods) *Transport {
	return &Transport{methods: methods}
}

// Channel is a goroutine worker
type Channel struct {
	workerID int
	in       chan *task.Message
	out      chan *task.Message
	messages chan *task.Message
	exited   chan struct{}
	killed   chan struct{}
	killOnce sync.Once
	cancel   context.CancelFunc
	err      error
	stdout   *io.PipeReader
	stderr   *io.PipeReader
}

func (c *Channel) run(ctx context.Context, methods types.Methods, stdout, stderr *io.PipeWriter) {
	defer close(c.exited)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker %d: recovered panic: %v\n%s", c.workerID, r, debug.Stack())
			c.err = fmt.Errorf("worker %d panic: %v", c.workerID, r)
		}
		_ = stdout.Close()
		_ = stderr.Close()
	}()
	c.err = worker.Serve(ctx, c.workerID, methods, (*conn)(c), stdout, stderr)
}

// pump forwards worker messages and closes Messages once the worker is gone
func (c *Channel) pump() {
	defer close(c.messages)
	for {
		select {
		case msg := <-c.out:
			select {
			case c.messages <- msg:
			case <-c.killed:
				return
			}
		case <-c.exited:
			for {
				select {
				case msg := <-c.out:
					c.messages <- msg
				default:
					return
				}
			}
		case <-c.killed:
			return
		}
	}
}

// Send delivers a request to the worker
func (c *Channel) Send(msg *task.Message) error {
	select {
	case <-c.exited:
		return transport.ErrClosed
	case <-c.killed:
		return transport.ErrClosed
	default:
	}
	select {
	case c.in <- msg:
		return nil
	case <-c.exited:
		return transport.ErrClosed
	case <-c.killed:
		return transport.ErrClosed
	}
}

// Messages returns worker messages
func (c *Channel) Messages() <-chan *task.Message { return c.messages }

// Err returns the exit reason
func (c *Channel) Err() error {
	select {
	case <-c.exited:
		return c.err
	case <-c.killed:
		return fmt.Errorf("worker %d killed", c.workerID)
	default:
		return nil
	}
}

// Stdout returns what handlers wrote to types.Stdout
func (c *Channel) Stdout() io.Reader { return c.stdout }

// Stderr returns what handlers wrote to types.Stderr
func (c *Channel) Stderr() io.Reader { return c.stderr }

// Stop asks the worker to exit after its current call
func (c *Channel) Stop(ctx context.Context) error {
	if err := c.Send(&task.Message{Kind: task.KindExit, WorkerID: c.workerID}); err != nil {
		return nil
	}
	select {
	case <-c.exited:
		return nil
	case <-ctx.Done():
		return c.Kill()
	}
}

// Kill abandons the worker goroutine. A handler that ignores its context
// keeps running, but nothing it produces is delivered.
func (c *Channel) Kill() error {
	c.killOnce.Do(func() {
		close(c.killed)
		c.cancel()
		_ = c.stdout.Close()
		_ = c.stderr.Close()
	})
	return nil
}

// conn is the worker end of Channel
type conn Channel

func (c *conn) Receive(ctx context.Context) (*task.Message, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) Send(msg *task.Message) error {
	select {
	case c.out <- msg:
		return nil
	case <-c.killed:
		return transport.ErrClosed
	}
}

var _ transport.Channel = (*Channel)(nil)
