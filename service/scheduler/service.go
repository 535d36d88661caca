// Package scheduler drives processes through their lifecycle: it builds the
// evaluation context, runs the rule engine and applies the resulting state
// transition, one dispatch per process at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/internal/clock"
	"github.com/viant/ruleflow/metrics"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/event"
	"github.com/viant/ruleflow/service/rule"
	"github.com/viant/ruleflow/tracing"
)

// ErrProcessNotFound is returned when the dispatched process does not exist.
var ErrProcessNotFound = errors.New("process not found")

// ContextBuilder builds evaluation contexts.
type ContextBuilder interface {
	Build(ctx context.Context, p *execution.Process, trigger string) (map[string]interface{}, error)
}

// RuleEngine evaluates the rules of a process.
type RuleEngine interface {
	Evaluate(ctx context.Context, p *execution.Process, variables map[string]interface{}) (*rule.Result, error)
	EvaluateTimers(ctx context.Context, p *execution.Process, variables map[string]interface{}) (*rule.Result, error)
}

// Ledger returns resource units.
type Ledger interface {
	Release(ctx context.Context, resourceID string, units int) error
}

// Enqueuer schedules an asynchronous dispatch.
type Enqueuer interface {
	Enqueue(ctx context.Context, processID, trigger string, priority uint8) error
}

// Service is the process scheduler.
type Service struct {
	processes  dao.ProcessStore
	snapshots  dao.SnapshotStore
	machine    *execution.Machine
	builder    ContextBuilder
	engine     RuleEngine
	ledger     Ledger
	notifier   *event.Publisher[event.Notification]
	enqueuer   Enqueuer
	locks      *lockTable
	lockGrace  time.Duration
	now        func() time.Time
	logger     hclog.Logger
	background sync.WaitGroup
}

// Dispatch evaluates process processID for trigger and applies the resulting
// transitions. An error is returned only when the process cannot be loaded
// or saved; refusals and rule failures are reported in the Outcome.
func (s *Service) Dispatch(ctx context.Context, processID, trigger string) (outcome *Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.dispatch", tracing.KindConsumer)
	span.WithAttributes(map[string]string{"process": processID, "trigger": trigger})
	defer func() { tracing.EndSpan(span, err) }()
	metrics.Add(ctx, metrics.Dispatches, "trigger", trigger)

	unlock := s.locks.acquire(processID)
	defer unlock()

	p, err := s.processes.Load(ctx, processID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			s.locks.terminated(processID)
			return nil, fmt.Errorf("%w: %v", ErrProcessNotFound, processID)
		}
		return nil, fmt.Errorf("failed to load process %v: %w", processID, err)
	}
	d := &dispatch{Service: s, ctx: ctx, span: span, process: p, outcome: &Outcome{ProcessID: processID, Trigger: trigger, From: p.State}}
	if p.State.IsTerminal() {
		s.locks.terminated(processID)
		return d.done(), nil
	}
	d.run(trigger)
	if err = d.persist(); err != nil {
		return nil, err
	}
	d.publish()
	d.followUp()
	return d.done(), nil
}

// Assign sets the operator of a non terminated process.
func (s *Service) Assign(ctx context.Context, processID, operatorID string) (*execution.Process, error) {
	return s.update(ctx, processID, func(p *execution.Process) {
		p.OperatorID = operatorID
	})
}

// SetPriority changes the priority of a non terminated process.
func (s *Service) SetPriority(ctx context.Context, processID string, priority uint8) (*execution.Process, error) {
	return s.update(ctx, processID, func(p *execution.Process) {
		p.Priority = priority
	})
}

func (s *Service) update(ctx context.Context, processID string, fn func(p *execution.Process)) (*execution.Process, error) {
	unlock := s.locks.acquire(processID)
	defer unlock()
	ret, err := s.processes.Update(ctx, processID, func(p *execution.Process) error {
		if p.State.IsTerminal() {
			return fmt.Errorf("process %v: %w", processID, execution.ErrTerminated)
		}
		fn(p)
		p.UpdatedAt = s.now()
		return nil
	})
	if errors.Is(err, dao.ErrNotFound) {
		s.locks.terminated(processID)
		return nil, fmt.Errorf("%w: %v", ErrProcessNotFound, processID)
	}
	return ret, err
}

// OnResourceReleased re-dispatches processes blocked on resourceID, highest
// priority first, then by sequence.
func (s *Service) OnResourceReleased(ctx context.Context, resourceID string, available int) {
	blocked, err := s.Blocked(ctx, resourceID)
	if err != nil {
		s.logger.Error("failed to list blocked processes", "resource", resourceID, "error", err)
		return
	}
	s.logger.Debug("resource released", "resource", resourceID, "available", available, "blocked", len(blocked))
	for _, p := range blocked {
		s.enqueue(ctx, p.ID, TriggerResource, p.Priority, true)
	}
}

// Blocked returns processes blocked on resourceID in re-dispatch order.
func (s *Service) Blocked(ctx context.Context, resourceID string) ([]*execution.Process, error) {
	ret, err := s.processes.List(ctx,
		dao.NewParameter(dao.ParamState, string(execution.StateBlocked)),
		dao.NewParameter(dao.ParamBlockedOn, resourceID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Priority != ret[j].Priority {
			return ret[i].Priority > ret[j].Priority
		}
		return ret[i].Seq < ret[j].Seq
	})
	return ret, nil
}

// EvictLocks drops lock entries of processes terminated longer than the grace window.
func (s *Service) EvictLocks() int {
	return s.locks.evict()
}

// Machine returns the state machine.
func (s *Service) Machine() *execution.Machine {
	return s.machine
}

// Wait blocks until background dispatches started without an enqueuer finish.
func (s *Service) Wait() {
	s.background.Wait()
}

// enqueue hands a dispatch to the enqueuer. Without one, a background
// dispatch is started only when fallback is set.
func (s *Service) enqueue(ctx context.Context, processID, trigger string, priority uint8, fallback bool) {
	if s.enqueuer != nil {
		if err := s.enqueuer.Enqueue(ctx, processID, trigger, priority); err != nil {
			s.logger.Warn("failed to enqueue dispatch", "process", processID, "trigger", trigger, "error", err)
		}
		return
	}
	if !fallback {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.Dispatch(context.WithoutCancel(ctx), processID, trigger); err != nil {
			s.logger.Warn("background dispatch failed", "process", processID, "trigger", trigger, "error", err)
		}
	}()
}

// New creates a scheduler.
func New(processes dao.ProcessStore, builder ContextBuilder, engine RuleEngine, ledger Ledger, opts ...Option) *Service {
	ret := &Service{
		processes: processes,
		builder:   builder,
		engine:    engine,
		ledger:    ledger,
		now:       clock.Now,
		logger:    hclog.Default().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.machine == nil {
		ret.machine = execution.NewMachine(execution.WithNow(ret.now))
	}
	ret.locks = newLockTable(ret.lockGrace, ret.now)
	return ret
}
