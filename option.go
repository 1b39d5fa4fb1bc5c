package workerfarm

import (
	"io"
	"time"

	"github.com/viant/workerfarm/policy"
	"github.com/viant/workerfarm/service/farm"
	"github.com/viant/workerfarm/service/queue"
	"github.com/viant/workerfarm/service/selector"
	"github.com/viant/workerfarm/service/transport"
	"github.com/viant/workerfarm/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option represents a farm service option
type Option func(s *Service)

// WithConfig sets the configuration; options applied after it override its fields
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			clone := *config
			s.config = &clone
		}
	}
}

// WithWorkers sets the number of workers
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.Workers = count
	}
}

// WithMaxRetries sets how many times a task is retried after its worker crashed
func WithMaxRetries(count int) Option {
	return func(s *Service) {
		s.config.MaxRetries = count
	}
}

// WithSchedulingPolicy sets worker scheduling policy: round-robin or in-order
func WithSchedulingPolicy(name string) Option {
	return func(s *Service) {
		s.config.SchedulingPolicy = name
	}
}

// WithComputeWorkerKey routes calls with the same non empty key to the same worker
func WithComputeWorkerKey(fn selector.KeyFunc) Option {
	return func(s *Service) {
		s.computeWorkerKey = fn
	}
}

// WithComputePriority sets call priority; it selects the priority queue unless a queue was configured
func WithComputePriority(fn farm.PriorityFunc) Option {
	return func(s *Service) {
		s.computePriority = fn
	}
}

// WithQueue sets a custom task queue
func WithQueue(q queue.Queue) Option {
	return func(s *Service) {
		s.queue = q
	}
}

// WithTransport sets the worker transport, goroutine workers are used by default
func WithTransport(tr transport.Transport) Option {
	return func(s *Service) {
		s.transport = tr
	}
}

// WithStartTimeout sets the time a worker has to report ready
func WithStartTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.config.StartTimeout = timeout
	}
}

// WithStopTimeout sets the time a worker has to exit on End before it is killed
func WithStopTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.config.StopTimeout = timeout
	}
}

// WithMaxRestarts sets consecutive failed restarts after which a worker is dead
func WithMaxRestarts(count int) Option {
	return func(s *Service) {
		s.config.MaxRestarts = count
	}
}

// WithStdout sets the writer receiving aggregated worker stdout
func WithStdout(w io.Writer) Option {
	return func(s *Service) {
		s.stdout = w
	}
}

// WithStderr sets the writer receiving aggregated worker stderr
func WithStderr(w io.Writer) Option {
	return func(s *Service) {
		s.stderr = w
	}
}

// WithExposedMethods exposes only the listed methods
func WithExposedMethods(names ...string) Option {
	return func(s *Service) {
		s.exposure = &policy.Policy{AllowList: names}
	}
}

// WithExposurePolicy sets the method exposure policy
func WithExposurePolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.exposure = p
	}
}

// WithListener registers a task event listener
func WithListener(listener farm.Listener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listener)
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
