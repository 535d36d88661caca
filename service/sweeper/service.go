// Package sweeper periodically enqueues stale-process sweeps and due timer
// evaluations, and evicts unused scheduler locks.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/internal/clock"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/scheduler"
)

// Config represents sweeper configuration
type Config struct {
	// SweepInterval is how often active processes are swept for timeouts
	SweepInterval time.Duration `yaml:"sweepInterval" json:"sweepInterval" env:"RULEFLOW_SWEEP_INTERVAL" env-default:"30s"`
	// TimerInterval is how often due timers are checked
	TimerInterval time.Duration `yaml:"timerInterval" json:"timerInterval" env:"RULEFLOW_TIMER_INTERVAL" env-default:"10s"`
}

// DefaultConfig returns the default sweeper configuration
func DefaultConfig() Config {
	return Config{
		SweepInterval: 30 * time.Second,
		TimerInterval: 10 * time.Second,
	}
}

var sweepStates = []string{
	string(execution.StateRunning),
	string(execution.StateWaiting),
	string(execution.StateBlocked),
	string(execution.StateError),
}

// LockEvictor drops unused dispatch locks.
type LockEvictor interface {
	EvictLocks() int
}

// Service runs the sweep loops
type Service struct {
	config     Config
	processes  dao.ProcessStore
	enqueuer   scheduler.Enqueuer
	locks      LockEvictor
	now        func() time.Time
	logger     hclog.Logger
	shutdownCh chan struct{}
	once       sync.Once
}

// Start runs the sweep loop until ctx is done or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	sweep := time.NewTicker(s.config.SweepInterval)
	defer sweep.Stop()
	timers := time.NewTicker(s.config.TimerInterval)
	defer timers.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-sweep.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("sweep failed", "error", err)
			}
		case <-timers.C:
			if _, err := s.Timers(ctx); err != nil {
				s.logger.Warn("timer check failed", "error", err)
			}
		}
	}
}

// Shutdown stops the loop.
func (s *Service) Shutdown() {
	s.once.Do(func() { close(s.shutdownCh) })
}

// Sweep enqueues a sweep dispatch for every active or errored process and
// evicts stale locks. Errored processes are retried or terminated by the
// dispatch. It returns the number of enqueued processes.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	list, err := s.processes.List(ctx, dao.NewParameter(dao.ParamState, sweepStates...))
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}
	count := s.enqueue(ctx, list, scheduler.TriggerSweep)
	if s.locks != nil {
		if evicted := s.locks.EvictLocks(); evicted > 0 {
			s.logger.Debug("evicted locks", "count", evicted)
		}
	}
	return count, nil
}

// Timers enqueues a timer dispatch for every waiting process whose
// scheduled time is due.
func (s *Service) Timers(ctx context.Context) (int, error) {
	list, err := s.processes.List(ctx, dao.NewParameter(dao.ParamState, string(execution.StateWaiting)))
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}
	now := s.now()
	var due []*execution.Process
	for _, p := range list {
		if p.ScheduledTime != nil && !p.ScheduledTime.After(now) {
			due = append(due, p)
		}
	}
	return s.enqueue(ctx, due, scheduler.TriggerTimer), nil
}

func (s *Service) enqueue(ctx context.Context, list []*execution.Process, trigger string) int {
	count := 0
	for _, p := range list {
		if err := s.enqueuer.Enqueue(ctx, p.ID, trigger, p.Priority); err != nil {
			s.logger.Warn("failed to enqueue", "process", p.ID, "trigger", trigger, "error", err)
			continue
		}
		count++
	}
	return count
}

// New creates a sweeper
func New(processes dao.ProcessStore, enqueuer scheduler.Enqueuer, config Config, opts ...Option) *Service {
	defaults := DefaultConfig()
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.TimerInterval <= 0 {
		config.TimerInterval = defaults.TimerInterval
	}
	ret := &Service{
		config:     config,
		processes:  processes,
		enqueuer:   enqueuer,
		now:        clock.Now,
		logger:     hclog.Default().Named("sweeper"),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
