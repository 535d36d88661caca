package event

import (
	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/service/messaging/memory"
)

type Option func(s *Service)

// WithNewMemoryQueueConfig  sets the new memory queue configuration
func WithNewMemoryQueueConfig(newQueue func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memNewQueueConfig = newQueue
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("event")
	}
}
