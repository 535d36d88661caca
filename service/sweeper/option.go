package sweeper

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option configures the sweeper.
type Option func(*Service)

// WithLockEvictor sets the lock table evicted on every sweep.
func WithLockEvictor(locks LockEvictor) Option {
	return func(s *Service) {
		s.locks = locks
	}
}

// WithNow sets the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("sweeper")
	}
}
