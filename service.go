package workerfarm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/viant/workerfarm/internal/idgen"
	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
	"github.com/viant/workerfarm/model/worker"
	"github.com/viant/workerfarm/policy"
	"github.com/viant/workerfarm/progress"
	"github.com/viant/workerfarm/service/farm"
	"github.com/viant/workerfarm/service/pool"
	"github.com/viant/workerfarm/service/queue"
	"github.com/viant/workerfarm/service/selector"
	"github.com/viant/workerfarm/service/transport"
	"github.com/viant/workerfarm/service/transport/memory"
	"github.com/viant/workerfarm/service/transport/process"
)

// Invoker submits a call of one exposed method
type Invoker func(ctx context.Context, args ...interface{}) *task.Future

// reserved holds facade method names an exposed method may not shadow
var reserved = []string{"Call", "Method", "Methods", "Workers", "Stats", "SessionID", "End", "KillAndDrain"}

// Service represents a worker farm
type Service struct {
	config           *Config
	methods          types.Methods
	exposure         *policy.Policy
	computeWorkerKey selector.KeyFunc
	computePriority  farm.PriorityFunc
	queue            queue.Queue
	transport        transport.Transport
	listeners        []farm.Listener
	stdout           io.Writer
	stderr           io.Writer

	invokers map[string]Invoker
	names    []string
	pool     *pool.Pool
	farm     *farm.Farm
}

// Call submits a call by method name; an unknown method yields a future
// rejected with types.ErrMethodNotFound.
func (s *Service) Call(ctx context.Context, method string, args ...interface{}) *task.Future {
	invoker, ok := s.invokers[method]
	if !ok {
		return task.Rejected(0, types.NewMethodNotFoundError(method))
	}
	return invoker(ctx, args...)
}

// Method returns the invoker of an exposed method
func (s *Service) Method(name string) (Invoker, bool) {
	ret, ok := s.invokers[name]
	return ret, ok
}

// Methods returns exposed method names in declaration order
func (s *Service) Methods() []string {
	return append([]string(nil), s.names...)
}

// Workers returns worker states
func (s *Service) Workers() []worker.State {
	return s.pool.States()
}

// Stats returns task counters
func (s *Service) Stats() progress.Counters {
	return s.farm.Progress()
}

// SessionID returns the farm session id
func (s *Service) SessionID() string {
	return s.farm.SessionID()
}

// End stops accepting calls, rejects queued ones, waits for running ones and
// stops the workers.
func (s *Service) End(ctx context.Context) error {
	return s.farm.End(ctx)
}

// KillAndDrain rejects queued and running calls and kills the workers.
func (s *Service) KillAndDrain(ctx context.Context) error {
	return s.farm.KillAndDrain(ctx)
}

func (s *Service) expose() error {
	if _, err := s.methods.Index(); err != nil {
		return err
	}
	if s.exposure == nil {
		s.exposure = policy.FromConfig(s.config.Expose)
	}
	if err := s.exposure.Validate(s.methods.Names()); err != nil {
		return err
	}
	s.invokers = make(map[string]Invoker)
	for _, method := range s.methods {
		if method.Name == "" {
			return fmt.Errorf("method name was empty")
		}
		if types.IsReserved(method.Name) || !s.exposure.IsAllowed(method.Name) {
			continue
		}
		if isReserved(method.Name) {
			return &types.DuplicateMethodError{Name: method.Name}
		}
		if method.Handler == nil {
			return fmt.Errorf("method %v has no handler", method.Name)
		}
		s.invokers[method.Name] = s.invoker(method.Name)
		s.names = append(s.names, method.Name)
	}
	return nil
}

func (s *Service) invoker(name string) Invoker {
	return func(ctx context.Context, args ...interface{}) *task.Future {
		return s.farm.Submit(ctx, name, args)
	}
}

func isReserved(name string) bool {
	for _, candidate := range reserved {
		if strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}

func (s *Service) init(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := s.expose(); err != nil {
		return err
	}
	if s.config.Workers == 0 {
		s.config.Workers = DefaultWorkers()
	}
	if s.queue == nil {
		kind := s.config.Queue
		if s.computePriority != nil && (kind == "" || kind == queue.KindFIFO) {
			kind = queue.KindPriority
		}
		var err error
		if s.queue, err = queue.New(kind); err != nil {
			return err
		}
	}
	workerPolicy, err := selector.New(s.config.SchedulingPolicy, s.computeWorkerKey)
	if err != nil {
		return err
	}
	if s.transport == nil {
		if s.config.Process != nil {
			if s.transport, err = process.New(*s.config.Process); err != nil {
				return err
			}
		} else {
			s.transport = memory.New(s.methods)
		}
	}

	s.pool = pool.New(s.transport, pool.Config{
		Workers:      s.config.Workers,
		StartTimeout: s.config.StartTimeout,
		StopTimeout:  s.config.StopTimeout,
		MaxRestarts:  s.config.MaxRestarts,
	}, pool.WithOutput(s.stdout, s.stderr))
	options := []farm.Option{farm.WithSessionID(idgen.New())}
	for _, listener := range s.listeners {
		options = append(options, farm.WithListener(listener))
	}
	s.farm = farm.New(s.pool, s.queue, workerPolicy, farm.Config{
		MaxRetries:      s.config.MaxRetries,
		ComputePriority: s.computePriority,
	}, options...)
	return s.pool.Start(ctx)
}

// New creates a farm serving methods and starts its workers
func New(ctx context.Context, methods types.Methods, options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig(), methods: methods}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}
