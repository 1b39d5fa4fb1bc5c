package pool

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/viant/workerfarm/internal/clock"
	"github.com/viant/workerfarm/internal/idgen"
	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
	"github.com/viant/workerfarm/model/worker"
	"github.com/viant/workerfarm/service/transport"
)

// Process is one pool slot; its worker instance is replaced on every restart
type Process struct {
	pool     *Pool
	state    worker.State
	channel  transport.Channel
	onResult ResultFunc
	seq      uint64
}

// attach makes ch the live instance; the caller must not hold the pool lock
func (p *Process) attach(ch transport.Channel, restarted bool) bool {
	p.pool.mux.Lock()
	if p.pool.ended {
		p.state.Status = worker.StatusDead
		p.pool.mux.Unlock()
		_ = ch.Kill()
		return false
	}
	p.channel = ch
	p.state.Status = worker.StatusIdle
	p.state.CurrentTaskID = 0
	p.state.InstanceID = idgen.Instance(p.state.ID)
	p.state.StartedAt = clock.Now()
	if restarted {
		p.state.Restarts++
	}
	p.pool.wg.Add(1)
	p.pool.mux.Unlock()
	go p.monitor(ch)
	return true
}

// monitor consumes worker messages until the instance exits
func (p *Process) monitor(ch transport.Channel) {
	defer p.pool.wg.Done()
	for msg := range ch.Messages() {
		switch msg.Kind {
		case task.KindResult, task.KindError:
			p.complete(ch, msg)
		}
	}
	p.exited(ch, ch.Err())
}

func (p *Process) complete(ch transport.Channel, msg *task.Message) {
	p.pool.mux.Lock()
	if p.channel != ch || p.onResult == nil || p.state.CurrentTaskID != msg.TaskID {
		p.pool.mux.Unlock()
		p.pool.logf("worker %d: ignoring unexpected %v for task %d", p.state.ID, msg.Kind, msg.TaskID)
		return
	}
	onResult := p.onResult
	p.onResult = nil
	p.state.Status = worker.StatusIdle
	p.state.CurrentTaskID = 0
	p.state.ConsecutiveFailures = 0
	p.pool.mux.Unlock()

	if msg.Kind == task.KindResult {
		onResult(msg.Value, nil)
		return
	}
	err := msg.Err
	if err == nil {
		err = &types.TaskError{Method: msg.Method, Message: msg.Error}
	}
	onResult(nil, err)
}

func (p *Process) exited(ch transport.Channel, exitErr error) {
	p.pool.mux.Lock()
	if p.channel != ch {
		p.pool.mux.Unlock()
		return
	}
	id := p.state.ID
	taskID := p.state.CurrentTaskID
	onResult := p.onResult
	p.onResult = nil
	p.state.CurrentTaskID = 0
	if p.pool.ended {
		p.state.Status = worker.StatusDead
		p.pool.mux.Unlock()
		if onResult != nil {
			onResult(nil, &types.WorkerCrashError{WorkerID: id, TaskID: taskID, Err: exitErr})
		}
		return
	}
	p.state.Status = worker.StatusRestarting
	p.state.ConsecutiveFailures++
	p.pool.wg.Add(1)
	p.pool.mux.Unlock()

	if exitErr == nil {
		exitErr = fmt.Errorf("worker exited")
	}
	p.pool.logf("worker %d crashed: %v", id, exitErr)
	if onResult != nil {
		onResult(nil, &types.WorkerCrashError{WorkerID: id, TaskID: taskID, Err: exitErr})
	}
	go p.restart()
}

// restart starts a replacement instance, giving up after MaxRestarts failed starts
func (p *Process) restart() {
	defer p.pool.wg.Done()
	id := p.state.ID
	for attempt := 1; ; attempt++ {
		select {
		case <-time.After(p.pool.config.RestartDelay):
		case <-p.pool.closing:
			p.die()
			return
		}
		p.setStatus(worker.StatusStarting)
		ch, err := p.pool.launch(context.Background(), id)
		if err == nil {
			if p.attach(ch, true) {
				p.pool.logf("worker %d restarted", id)
				p.pool.notify(id, worker.StatusIdle)
			}
			return
		}
		p.pool.mux.Lock()
		p.state.Status = worker.StatusRestarting
		p.state.ConsecutiveFailures++
		p.pool.mux.Unlock()
		p.pool.logf("worker %d: restart attempt %d failed: %v", id, attempt, err)
		if attempt >= p.pool.config.MaxRestarts {
			p.pool.logf("worker %d is dead after %d failed restarts", id, attempt)
			p.die()
			p.pool.notify(id, worker.StatusDead)
			return
		}
	}
}

func (p *Process) die() {
	p.setStatus(worker.StatusDead)
}

func (p *Process) setStatus(status worker.Status) {
	p.pool.mux.Lock()
	p.state.Status = status
	p.pool.mux.Unlock()
}

// launch starts one worker instance and waits for its ready message
func (p *Pool) launch(ctx context.Context, id int) (transport.Channel, error) {
	startCtx, cancel := context.WithTimeout(ctx, p.config.StartTimeout)
	defer cancel()
	ch, err := p.transport.Start(startCtx, id)
	if err != nil {
		return nil, &types.StartupError{WorkerID: id, Err: err}
	}
	p.forward(ch.Stdout(), p.stdout)
	p.forward(ch.Stderr(), p.stderr)
	select {
	case msg, ok := <-ch.Messages():
		if !ok {
			err = ch.Err()
			if err == nil {
				err = fmt.Errorf("worker exited before ready")
			}
			return nil, &types.StartupError{WorkerID: id, Err: err}
		}
		if msg.Kind != task.KindReady {
			_ = ch.Kill()
			return nil, &types.StartupError{WorkerID: id, Err: fmt.Errorf("expected ready, but had: %v", msg.Kind)}
		}
		return ch, nil
	case <-p.killing:
		_ = ch.Kill()
		return nil, &types.StartupError{WorkerID: id, Err: types.ErrPoolEnded}
	case <-startCtx.Done():
		_ = ch.Kill()
		if err = ctx.Err(); err != nil {
			return nil, &types.StartupError{WorkerID: id, Err: err}
		}
		return nil, &types.StartupError{WorkerID: id, Timeout: p.config.StartTimeout}
	}
}

func (p *Pool) forward(r io.Reader, output *Output) {
	if r == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := output.Copy(r); err != nil {
			p.logf("failed to forward worker output: %v", err)
		}
	}()
}

func newProcess(pool *Pool, id int) *Process {
	return &Process{pool: pool, state: worker.State{ID: id, Status: worker.StatusStarting}}
}
