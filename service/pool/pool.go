package pool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
	"github.com/viant/workerfarm/model/worker"
	"github.com/viant/workerfarm/service/transport"
)

// ResultFunc receives the outcome of a task sent to a worker
type ResultFunc func(value interface{}, err error)

// StatusListener is notified when a worker becomes idle after a (re)start or goes dead
type StatusListener func(workerID int, status worker.Status)

// Pool manages a fixed set of workers
type Pool struct {
	config    Config
	transport transport.Transport
	stdout    *Output
	stderr    *Output
	listeners []StatusListener

	mux       sync.Mutex
	processes []*Process
	ended     bool
	killed    bool
	closing   chan struct{}
	killing   chan struct{}
	wg        sync.WaitGroup
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.config.Workers
}

// Subscribe registers a worker status listener
func (p *Pool) Subscribe(listener StatusListener) {
	if listener == nil {
		return
	}
	p.mux.Lock()
	p.listeners = append(p.listeners, listener)
	p.mux.Unlock()
}

// States returns a snapshot of every worker state
func (p *Pool) States() []worker.State {
	p.mux.Lock()
	defer p.mux.Unlock()
	ret := make([]worker.State, len(p.processes))
	for i, proc := range p.processes {
		ret[i] = proc.state
	}
	return ret
}

// Start starts all workers and waits until every one of them is ready.
// When any worker fails to start, the started ones are killed.
func (p *Pool) Start(ctx context.Context) error {
	p.mux.Lock()
	if p.ended {
		p.mux.Unlock()
		return types.ErrPoolEnded
	}
	if len(p.processes) > 0 {
		p.mux.Unlock()
		return fmt.Errorf("worker pool already started")
	}
	p.processes = make([]*Process, p.config.Workers)
	for i := range p.processes {
		p.processes[i] = newProcess(p, i)
	}
	p.mux.Unlock()

	channels := make([]transport.Channel, p.config.Workers)
	errs := make([]error, p.config.Workers)
	var wg sync.WaitGroup
	for i := range channels {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			channels[id], errs[id] = p.launch(ctx, id)
		}(i)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		for _, ch := range channels {
			if ch != nil {
				_ = ch.Kill()
			}
		}
		p.mux.Lock()
		for _, proc := range p.processes {
			proc.state.Status = worker.StatusDead
		}
		p.mux.Unlock()
		for _, e := range errs {
			if e != nil {
				return e
			}
		}
	}
	for i, ch := range channels {
		p.processes[i].attach(ch, false)
	}
	for i := range channels {
		p.notify(i, worker.StatusIdle)
	}
	return nil
}

// Send hands a task to an idle worker; onResult is called exactly once
// when Send returns nil.
func (p *Pool) Send(workerID int, t *task.Task, onResult ResultFunc) error {
	p.mux.Lock()
	if p.ended {
		p.mux.Unlock()
		return types.ErrPoolEnded
	}
	if workerID < 0 || workerID >= len(p.processes) {
		p.mux.Unlock()
		return fmt.Errorf("invalid worker id: %v", workerID)
	}
	proc := p.processes[workerID]
	if proc.state.Status != worker.StatusIdle {
		p.mux.Unlock()
		return types.ErrWorkerNotIdle
	}
	proc.seq++
	seq := proc.seq
	proc.state.Status = worker.StatusBusy
	proc.state.CurrentTaskID = t.ID
	proc.onResult = onResult
	ch := proc.channel
	p.mux.Unlock()

	msg := task.NewCall(t)
	msg.WorkerID = workerID
	err := ch.Send(msg)
	if err == nil {
		return nil
	}

	p.mux.Lock()
	defer p.mux.Unlock()
	if proc.seq != seq || proc.onResult == nil {
		// the exit monitor already reported this call as crashed
		return nil
	}
	proc.onResult = nil
	if errors.Is(err, transport.ErrClosed) {
		return &types.WorkerCrashError{WorkerID: workerID, TaskID: t.ID, Err: err}
	}
	proc.state.Status = worker.StatusIdle
	proc.state.CurrentTaskID = 0
	return err
}

// End stops all workers gracefully; each worker gets StopTimeout to exit
// before it is killed.
func (p *Pool) End(ctx context.Context) error {
	p.mux.Lock()
	if p.ended {
		p.mux.Unlock()
		return types.ErrPoolEnded
	}
	p.ended = true
	close(p.closing)
	channels := p.channels()
	p.mux.Unlock()

	stopCtx, cancel := context.WithTimeout(ctx, p.config.StopTimeout)
	defer cancel()
	go func() {
		select {
		case <-p.killing:
			cancel()
		case <-stopCtx.Done():
		}
	}()

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch transport.Channel) {
			defer wg.Done()
			_ = ch.Stop(stopCtx)
		}(ch)
	}
	wg.Wait()
	return p.wait(ctx)
}

// Kill terminates all workers immediately, escalating an End in progress
func (p *Pool) Kill(ctx context.Context) error {
	p.mux.Lock()
	if p.killed {
		p.mux.Unlock()
		return types.ErrPoolEnded
	}
	p.killed = true
	close(p.killing)
	if !p.ended {
		p.ended = true
		close(p.closing)
	}
	channels := p.channels()
	p.mux.Unlock()

	for _, ch := range channels {
		_ = ch.Kill()
	}
	return p.wait(ctx)
}

func (p *Pool) channels() []transport.Channel {
	var ret []transport.Channel
	for _, proc := range p.processes {
		if proc.channel != nil {
			ret = append(ret, proc.channel)
		}
	}
	return ret
}

func (p *Pool) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) notify(workerID int, status worker.Status) {
	p.mux.Lock()
	listeners := append([]StatusListener(nil), p.listeners...)
	p.mux.Unlock()
	for _, listener := range listeners {
		listener(workerID, status)
	}
}

func (p *Pool) logf(format string, args ...interface{}) {
	log.Printf("workerpool: "+format, args...)
}

// New creates a worker pool
func New(tr transport.Transport, config Config, options ...Option) *Pool {
	config.init()
	ret := &Pool{
		config:    config,
		transport: tr,
		stdout:    NewOutput(nil),
		stderr:    NewOutput(nil),
		closing:   make(chan struct{}),
		killing:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
