package scheduler

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/event"
)

// Option configures the scheduler.
type Option func(s *Service)

// WithMachine sets the state machine.
func WithMachine(machine *execution.Machine) Option {
	return func(s *Service) {
		s.machine = machine
	}
}

// WithSnapshots enables context snapshots.
func WithSnapshots(snapshots dao.SnapshotStore) Option {
	return func(s *Service) {
		s.snapshots = snapshots
	}
}

// WithNotifier sets the transition notification publisher.
func WithNotifier(notifier *event.Publisher[event.Notification]) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithEnqueuer sets the asynchronous dispatch queue used for spawned
// children, send-back targets and resource re-dispatch.
func WithEnqueuer(enqueuer Enqueuer) Option {
	return func(s *Service) {
		s.enqueuer = enqueuer
	}
}

// WithLockGrace sets how long locks of terminated processes are kept.
func WithLockGrace(grace time.Duration) Option {
	return func(s *Service) {
		s.lockGrace = grace
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
		s.logger = logger.Named("scheduler")
	}
}
