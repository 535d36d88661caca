package rule

import (
	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/service/dao"
)

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.Named("rule")
	}
}

// WithDispatcher sets the instruction dispatcher.
func WithDispatcher(dispatcher Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = dispatcher
	}
}

// WithSpawner sets the sub-process spawner.
func WithSpawner(spawner Spawner) Option {
	return func(e *Engine) {
		e.spawner = spawner
	}
}

// WithServices sets the service store used to resolve default actions.
func WithServices(services dao.ServiceStore) Option {
	return func(e *Engine) {
		e.services = services
	}
}
