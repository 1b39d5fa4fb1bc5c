// Package process runs every worker as a child process. Requests travel on
// the child's fd 3 and responses on fd 4 as JSON lines; stdout and stderr
// stay free for the worker's own output.
package process

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/service/transport"
	"github.com/viant/workerfarm/service/worker"
)

// Config represents a worker command
type Config struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Transport starts process workers
type Transport struct {
	config Config
}

// New creates a process transport
func New(config Config) (*Transport, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("worker command was empty")
	}
	return &Transport{config: config}, nil
}

// Start launches a child process
func (t *Transport) Start(_ context.Context, workerID int) (transport.Channel, error) {
	var files []*os.File
	pipe := func() (*os.File, *os.File, error) {
		r, w, err := os.Pipe()
		if err == nil {
			files = append(files, r, w)
		}
		return r, w, err
	}
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	reqR, reqW, err := pipe()
	if err != nil {
		return nil, err
	}
	respR, respW, err := pipe()
	if err != nil {
		closeAll()
		return nil, err
	}
	outR, outW, err := pipe()
	if err != nil {
		closeAll()
		return nil, err
	}
	errR, errW, err := pipe()
	if err != nil {
		closeAll()
		return nil, err
	}

	cmd := exec.Command(t.config.Command, t.config.Args...)
	cmd.Dir = t.config.Dir
	cmd.Env = append(os.Environ(), t.config.Env...)
	cmd.Env = append(cmd.Env, worker.EnvChild+"=1", worker.EnvWorkerID+"="+strconv.Itoa(workerID))
	cmd.Stdin = nil
	cmd.Stdout = outW
	cmd.Stderr = errW
	cmd.ExtraFiles = []*os.File{reqR, respW}
	if err = cmd.Start(); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to start worker %d: %w", workerID, err)
	}
	// child ends belong to the child now
	for _, f := range []*os.File{reqR, respW, outW, errW} {
		_ = f.Close()
	}

	writer := bufio.NewWriter(reqW)
	ch := &Channel{
		workerID: workerID,
		cmd:      cmd,
		requests: reqW,
		writer:   writer,
		encoder:  json.NewEncoder(writer),
		messages: make(chan *task.Message, 4),
		exited:   make(chan struct{}),
		stdout:   outR,
		stderr:   errR,
	}
	go ch.read(respR)
	return ch, nil
}

// Channel is a child process worker
type Channel struct {
	workerID int
	cmd      *exec.Cmd
	mu       sync.Mutex
	closed   bool
	requests *os.File
	writer   *bufio.Writer
	encoder  *json.Encoder
	messages chan *task.Message
	exited   chan struct{}
	err      error
	stdout   *os.File
	stderr   *os.File
}

func (c *Channel) read(responses *os.File) {
	defer close(c.messages)
	defer close(c.exited)
	decoder := json.NewDecoder(responses)
	var readErr error
	for {
		msg := &task.Message{}
		if readErr = decoder.Decode(msg); readErr != nil {
			break
		}
		c.messages <- msg
	}
	_ = responses.Close()
	corrupted := readErr != nil && !errors.Is(readErr, io.EOF)
	if corrupted {
		_ = kill(c.cmd.Process)
	}
	waitErr := c.cmd.Wait()
	c.mu.Lock()
	c.closed = true
	_ = c.requests.Close()
	c.mu.Unlock()
	switch {
	case corrupted:
		c.err = fmt.Errorf("worker %d: corrupted response stream: %w", c.workerID, readErr)
	case waitErr != nil:
		c.err = fmt.Errorf("worker %d exited: %w", c.workerID, waitErr)
	}
}

// Send writes a request
func (c *Channel) Send(msg *task.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %v for task %d: %w", msg.Kind, msg.TaskID, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	if _, err = c.writer.Write(append(data, '\n')); err == nil {
		err = c.writer.Flush()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", transport.ErrClosed, err)
	}
	return nil
}

// Messages returns worker messages
func (c *Channel) Messages() <-chan *task.Message { return c.messages }

// Err returns the process exit reason
func (c *Channel) Err() error {
	select {
	case <-c.exited:
		return c.err
	default:
		return nil
	}
}

// Stdout returns child stdout
func (c *Channel) Stdout() io.Reader { return c.stdout }

// Stderr returns child stderr
func (c *Channel) Stderr() io.Reader { return c.stderr }

// Stop sends exit and waits for the child, killing it when ctx is done
func (c *Channel) Stop(ctx context.Context) error {
	if err := c.Send(&task.Message{Kind: task.KindExit, WorkerID: c.workerID}); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return nil
		}
		return err
	}
	select {
	case <-c.exited:
		return nil
	case <-ctx.Done():
		return c.Kill()
	}
}

// Kill terminates the child process
func (c *Channel) Kill() error {
	select {
	case <-c.exited:
		return nil
	default:
	}
	if c.cmd.Process == nil {
		return nil
	}
	return kill(c.cmd.Process)
}

var _ transport.Channel = (*Channel)(nil)
