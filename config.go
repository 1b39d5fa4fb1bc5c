package workerfarm

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/workerfarm/policy"
	"github.com/viant/workerfarm/service/meta"
	"github.com/viant/workerfarm/service/queue"
	"github.com/viant/workerfarm/service/selector"
	"github.com/viant/workerfarm/service/transport/process"
)

// Config is a serialisable representation of the farm configuration. It can
// be loaded from YAML through any afs URL. Zero values fall back to defaults.
type Config struct {
	Workers          int             `json:"workers,omitempty" yaml:"workers,omitempty"`
	MaxRetries       int             `json:"maxRetries" yaml:"maxRetries"`
	SchedulingPolicy string          `json:"workerSchedulingPolicy,omitempty" yaml:"workerSchedulingPolicy,omitempty"`
	Queue            string          `json:"queue,omitempty" yaml:"queue,omitempty"`
	StartTimeout     time.Duration   `json:"startTimeout,omitempty" yaml:"startTimeout,omitempty"`
	StopTimeout      time.Duration   `json:"stopTimeout,omitempty" yaml:"stopTimeout,omitempty"`
	MaxRestarts      int             `json:"maxRestarts" yaml:"maxRestarts"`
	Expose           *policy.Config  `json:"expose,omitempty" yaml:"expose,omitempty"`
	Process          *process.Config `json:"process,omitempty" yaml:"process,omitempty"`
}

// DefaultConfig returns a Config populated with default values. Callers may
// modify the returned struct before passing it to WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Workers:          DefaultWorkers(),
		MaxRetries:       3,
		SchedulingPolicy: selector.RoundRobinPolicy,
		Queue:            queue.KindFIFO,
		StartTimeout:     10 * time.Second,
		StopTimeout:      2 * time.Second,
		MaxRestarts:      5,
	}
}

// DefaultWorkers returns host parallelism minus one, at least one
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be >= 0")
	}
	if c.MaxRestarts < 0 {
		return fmt.Errorf("maxRestarts must be >= 0")
	}
	if c.StartTimeout < 0 || c.StopTimeout < 0 {
		return fmt.Errorf("startTimeout and stopTimeout must be >= 0")
	}
	if _, err := selector.New(c.SchedulingPolicy, nil); err != nil {
		return err
	}
	if _, err := queue.New(c.Queue); err != nil {
		return err
	}
	if c.Process != nil && c.Process.Command == "" {
		return fmt.Errorf("process.command was empty")
	}
	return nil
}

// DecodeConfig decodes YAML over the default configuration, expanding ${env.NAME} expressions
func DecodeConfig(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.Decode(data, ret); err != nil {
		return nil, err
	}
	return ret, ret.Validate()
}

// LoadConfig loads YAML configuration from any afs URL
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	data, err := meta.New(afs.New(), "", options...).Download(ctx, URL)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(data)
}
