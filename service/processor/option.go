package processor

import (
	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/service/messaging"
)

// Option configures the processor.
type Option func(*Service)

// WithMessageQueue sets the message queue implementation
func WithMessageQueue(queue messaging.Queue[Request]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("processor")
	}
}
