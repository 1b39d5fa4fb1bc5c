package pool

import "time"

// Config represents worker pool configuration
type Config struct {
	// Workers is the number of workers started by the pool
	Workers int

	// StartTimeout bounds the wait for a worker ready message
	StartTimeout time.Duration

	// StopTimeout bounds the graceful stop of a worker before it is killed
	StopTimeout time.Duration

	// MaxRestarts is the number of consecutive failed starts after which a worker is dead
	MaxRestarts int

	// RestartDelay is the delay before a crashed worker is started again
	RestartDelay time.Duration
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() Config {
	return Config{
		Workers:      1,
		StartTimeout: 10 * time.Second,
		StopTimeout:  2 * time.Second,
		MaxRestarts:  5,
		RestartDelay: 50 * time.Millisecond,
	}
}

func (c *Config) init() {
	defaults := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = defaults.StartTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaults.StopTimeout
	}
	if c.MaxRestarts < 0 {
		c.MaxRestarts = 0
	}
	if c.RestartDelay < 0 {
		c.RestartDelay = 0
	}
}
