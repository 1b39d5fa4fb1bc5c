package farm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/workerfarm/internal/clock"
	"github.com/viant/workerfarm/internal/idgen"
	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
	"github.com/viant/workerfarm/model/worker"
	"github.com/viant/workerfarm/progress"
	"github.com/viant/workerfarm/service/pool"
	"github.com/viant/workerfarm/service/queue"
	"github.com/viant/workerfarm/service/selector"
	"github.com/viant/workerfarm/tracing"
)

// Pool represents the workers a farm dispatches to
type Pool interface {
	Size() int
	States() []worker.State
	Send(workerID int, t *task.Task, onResult pool.ResultFunc) error
	Subscribe(listener pool.StatusListener)
	End(ctx context.Context) error
	Kill(ctx context.Context) error
}

// Farm schedules submitted calls onto pool workers
type Farm struct {
	config    Config
	pool      Pool
	queue     queue.Queue
	policy    selector.Policy
	listeners []Listener
	progress  *progress.Progress
	sessionID string

	mux      sync.Mutex
	nextID   uint64
	inFlight map[uint64]*task.Task
	ended    bool
	killed   bool
	closed   bool
	drained  chan struct{}
	drainSet bool
}

// SessionID returns the farm session id
func (f *Farm) SessionID() string {
	return f.sessionID
}

// Progress returns task counters
func (f *Farm) Progress() progress.Counters {
	return f.progress.Snapshot()
}

// Size returns the number of queued tasks
func (f *Farm) Size() int {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.queue.Size()
}

// InFlight returns the number of tasks running on workers
func (f *Farm) InFlight() int {
	f.mux.Lock()
	defer f.mux.Unlock()
	return len(f.inFlight)
}

// Submit schedules a call and returns its future. After End or KillAndDrain
// the returned future is already rejected with types.ErrFarmEnded.
func (f *Farm) Submit(ctx context.Context, method string, args []interface{}) *task.Future {
	_, span := tracing.StartSpan(ctx, "farm.task "+method, "INTERNAL")
	span.WithAttributes(map[string]string{"farm.session": f.sessionID, "task.method": method})

	f.mux.Lock()
	defer f.mux.Unlock()
	f.nextID++
	t := task.New(f.nextID, method, args, f.config.MaxRetries)
	t.Span = span.WithInt("task.id", int(t.ID))
	f.progress.Update(progress.Delta{Submitted: 1})
	if f.ended {
		f.reject(t, types.ErrFarmEnded)
		return t.Future
	}
	if f.config.ComputePriority != nil {
		t.Priority = f.config.ComputePriority(method, args)
	}
	t.Lane = f.policy.Bind(t, f.pool.Size())
	if err := f.routable(t.Lane); err != nil {
		f.reject(t, err)
		return t.Future
	}
	f.queue.Enqueue(t)
	f.progress.Update(progress.Delta{Pending: 1})
	f.emit(newEvent(EventQueued, t, nil))
	f.dispatch()
	return t.Future
}

// OnWorkerStatus re-runs dispatch when a worker becomes available and
// rejects tasks that can no longer run when a worker goes dead.
func (f *Farm) OnWorkerStatus(workerID int, status worker.Status) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.killed {
		return
	}
	if status == worker.StatusDead {
		f.rejectUnroutable()
	}
	f.dispatch()
	f.checkDrained()
}

// End rejects queued tasks, waits for in-flight ones (including their crash
// retries) and stops the pool. When ctx is done first it escalates to
// KillAndDrain.
func (f *Farm) End(ctx context.Context) error {
	f.mux.Lock()
	if f.ended {
		f.mux.Unlock()
		return types.ErrFarmEnded
	}
	f.ended = true
	for _, t := range f.queue.Drain() {
		f.progress.Update(progress.Delta{Pending: -1})
		f.reject(t, types.ErrFarmEnded)
	}
	drained := f.drained
	f.checkDrained()
	f.mux.Unlock()

	select {
	case <-drained:
	case <-ctx.Done():
		if err := f.kill(context.Background()); err != nil && !errors.Is(err, types.ErrFarmEnded) {
			return err
		}
		return ctx.Err()
	}

	f.mux.Lock()
	killed := f.killed
	f.mux.Unlock()
	if killed {
		return nil
	}
	err := f.pool.End(ctx)
	f.mux.Lock()
	f.closed = true
	f.mux.Unlock()
	if errors.Is(err, types.ErrPoolEnded) {
		return nil
	}
	return err
}

// KillAndDrain rejects queued and in-flight tasks and kills every worker
// without waiting for running calls.
func (f *Farm) KillAndDrain(ctx context.Context) error {
	return f.kill(ctx)
}

func (f *Farm) kill(ctx context.Context) error {
	f.mux.Lock()
	if f.killed || f.closed {
		f.mux.Unlock()
		return types.ErrFarmEnded
	}
	f.killed = true
	f.ended = true
	for _, t := range f.queue.Drain() {
		f.progress.Update(progress.Delta{Pending: -1})
		f.reject(t, types.ErrFarmEnded)
	}
	for id, t := range f.inFlight {
		delete(f.inFlight, id)
		f.progress.Update(progress.Delta{Running: -1})
		f.reject(t, types.ErrFarmEnded)
	}
	f.checkDrained()
	f.mux.Unlock()

	err := f.pool.Kill(ctx)
	f.mux.Lock()
	f.closed = true
	f.mux.Unlock()
	if errors.Is(err, types.ErrPoolEnded) {
		return nil
	}
	return err
}

// dispatch offers queued tasks to idle workers; the caller holds the lock
func (f *Farm) dispatch() {
	if f.killed || f.queue.Size() == 0 {
		return
	}
	for _, workerID := range f.policy.Candidates(f.pool.States()) {
		t := f.queue.Dequeue(workerID)
		if t == nil {
			continue
		}
		f.send(workerID, t)
		if f.queue.Size() == 0 {
			return
		}
	}
}

func (f *Farm) send(workerID int, t *task.Task) {
	t.State = task.StateAssigned
	t.WorkerID = workerID
	t.Attempts++
	f.inFlight[t.ID] = t
	f.progress.Update(progress.Delta{Pending: -1, Running: 1})
	f.emit(newEvent(EventDispatched, t, nil))
	t.Span.AddEvent(fmt.Sprintf("dispatched to worker %d", workerID))

	err := f.pool.Send(workerID, t, func(value interface{}, err error) {
		f.onResult(t, value, err)
	})
	if err == nil {
		return
	}
	delete(f.inFlight, t.ID)
	f.progress.Update(progress.Delta{Running: -1})
	var crash *types.WorkerCrashError
	switch {
	case errors.As(err, &crash):
		f.crashed(t, err)
	case errors.Is(err, types.ErrWorkerNotIdle):
		t.Attempts--
		t.State = task.StateQueued
		t.WorkerID = task.AnyWorker
		f.queue.Restore(t)
		f.progress.Update(progress.Delta{Pending: 1})
	default:
		f.settle(t, nil, err)
	}
}

func (f *Farm) onResult(t *task.Task, value interface{}, err error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	if current, ok := f.inFlight[t.ID]; !ok || current != t || t.State != task.StateAssigned {
		return
	}
	delete(f.inFlight, t.ID)
	f.progress.Update(progress.Delta{Running: -1})
	var crash *types.WorkerCrashError
	if errors.As(err, &crash) {
		f.crashed(t, err)
	} else {
		f.settle(t, value, err)
	}
	f.dispatch()
	f.checkDrained()
}

// crashed retries a task whose worker died or abandons it once retries are used up
func (f *Farm) crashed(t *task.Task, err error) {
	if t.RetriesRemaining > 0 {
		t.RetriesRemaining--
		t.State = task.StateRetrying
		f.emit(newEvent(EventRetried, t, err))
		t.Span.AddEvent("retried")
		t.State = task.StateQueued
		t.WorkerID = task.AnyWorker
		if aErr := f.routable(t.Lane); aErr != nil {
			f.reject(t, aErr)
			return
		}
		f.queue.Requeue(t)
		f.progress.Update(progress.Delta{Pending: 1, Retried: 1})
		return
	}
	exhausted := &types.RetriesExhaustedError{TaskID: t.ID, Method: t.Method, Attempts: t.Attempts, Err: err}
	t.State = task.StateAbandoned
	t.Settle(nil, exhausted)
	f.progress.Update(progress.Delta{Abandoned: 1})
	f.emit(newEvent(EventAbandoned, t, exhausted))
	tracing.EndSpan(t.Span.WithInt("task.attempts", t.Attempts), exhausted)
}

func (f *Farm) settle(t *task.Task, value interface{}, err error) {
	t.State = task.StateCompleted
	t.Settle(value, err)
	t.Span.WithInt("worker.id", t.WorkerID).WithInt("task.attempts", t.Attempts).
		WithInt("task.latencyMs", int(clock.Since(t.SubmittedAt).Milliseconds()))
	if err != nil {
		f.progress.Update(progress.Delta{Failed: 1})
		f.emit(newEvent(EventFailed, t, err))
	} else {
		f.progress.Update(progress.Delta{Completed: 1})
		f.emit(newEvent(EventCompleted, t, nil))
	}
	tracing.EndSpan(t.Span, err)
}

func (f *Farm) reject(t *task.Task, err error) {
	t.State = task.StateAbandoned
	t.Settle(nil, err)
	f.progress.Update(progress.Delta{Rejected: 1})
	f.emit(newEvent(EventRejected, t, err))
	tracing.EndSpan(t.Span, err)
}

// routable returns an error when no live worker can serve lane
func (f *Farm) routable(lane int) error {
	states := f.pool.States()
	if len(states) == 0 {
		return nil
	}
	if lane != task.AnyWorker {
		if lane < len(states) && states[lane].Status == worker.StatusDead {
			return fmt.Errorf("worker %d: %w", lane, types.ErrWorkerDead)
		}
		return nil
	}
	for _, state := range states {
		if state.Status != worker.StatusDead {
			return nil
		}
	}
	return fmt.Errorf("all workers: %w", types.ErrWorkerDead)
}

// rejectUnroutable settles queued tasks bound to dead workers
func (f *Farm) rejectUnroutable() {
	if f.queue.Size() == 0 {
		return
	}
	for _, t := range f.queue.Drain() {
		if err := f.routable(t.Lane); err != nil {
			f.progress.Update(progress.Delta{Pending: -1})
			f.reject(t, err)
			continue
		}
		f.queue.Restore(t)
	}
}

func (f *Farm) checkDrained() {
	if !f.ended || f.drainSet || len(f.inFlight) > 0 || f.queue.Size() > 0 {
		return
	}
	f.drainSet = true
	close(f.drained)
}

func (f *Farm) emit(event *Event) {
	for _, listener := range f.listeners {
		listener(event)
	}
}

// New creates a farm and subscribes it to pool worker status changes
func New(p Pool, q queue.Queue, policy selector.Policy, config Config, options ...Option) *Farm {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	ret := &Farm{
		config:   config,
		pool:     p,
		queue:    q,
		policy:   policy,
		inFlight: make(map[uint64]*task.Task),
		drained:  make(chan struct{}),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.sessionID == "" {
		ret.sessionID = idgen.New()
	}
	if ret.progress == nil {
		ret.progress = progress.New(ret.sessionID)
	}
	p.Subscribe(ret.OnWorkerStatus)
	return ret
}
