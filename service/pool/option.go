package pool

import "io"

// Option represents a pool option
type Option func(*Pool)

// WithOutput sets writers receiving the aggregated worker stdout and stderr
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Pool) {
		if stdout != nil {
			p.stdout = NewOutput(stdout)
		}
		if stderr != nil {
			p.stderr = NewOutput(stderr)
		}
	}
}

// WithStatusListener registers a worker status listener
func WithStatusListener(listener StatusListener) Option {
	return func(p *Pool) {
		if listener != nil {
			p.listeners = append(p.listeners, listener)
		}
	}
}
