package farm

// Option represents a farm option
type Option func(*Farm)

// WithListener registers a task event listener
func WithListener(listener Listener) Option {
	return func(f *Farm) {
		if listener != nil {
			f.listeners = append(f.listeners, listener)
		}
	}
}

// WithSessionID sets the session id reported by counters and spans
func WithSessionID(id string) Option {
	return func(f *Farm) {
		f.sessionID = id
	}
}
