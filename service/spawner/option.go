package spawner

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option configures the spawner.
type Option func(*Service)

// WithNow sets the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("spawner")
	}
}

// WithListeners registers creation listeners.
func WithListeners(listeners ...Listener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listeners...)
	}
}
