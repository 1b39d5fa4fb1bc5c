package farm

// PriorityFunc computes a task priority; higher runs first
type PriorityFunc func(method string, args []interface{}) int

// Config represents farm configuration
type Config struct {
	// MaxRetries is the number of times a task is retried after its worker crashed
	MaxRetries int

	// ComputePriority sets task priority when a priority queue is used
	ComputePriority PriorityFunc
}

// DefaultConfig returns the default farm configuration
func DefaultConfig() Config {
	return Config{MaxRetries: 3}
}
