package binding

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option configures a Builder
type Option func(b *Builder)

// WithNow sets the clock used for the now binding.
func WithNow(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger.Named("binding")
	}
}
