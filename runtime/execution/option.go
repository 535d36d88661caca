package execution

import "time"

// Option configures a Machine
type Option func(m *Machine)

// WithTimeout sets the default process timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Machine) {
		m.timeout = timeout
	}
}

// WithMaxRetries sets the default retry bound.
func WithMaxRetries(max int) Option {
	return func(m *Machine) {
		m.maxRetries = max
	}
}

// WithNow sets the clock.
func WithNow(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithListeners registers transition listeners.
func WithListeners(listeners ...TransitionListener) Option {
	return func(m *Machine) {
		m.listeners = append(m.listeners, listeners...)
	}
}
