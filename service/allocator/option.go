package allocator

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option configures the ledger
type Option func(s *Service)

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("allocator")
	}
}

// WithNow sets the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
