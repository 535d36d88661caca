package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/viant/ruleflow/metrics"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/event"
	"github.com/viant/ruleflow/service/rule"
	"github.com/viant/ruleflow/tracing"
)

// dispatch holds the state of one Dispatch call; the process lock is held
// for its whole life.
type dispatch struct {
	*Service
	ctx     context.Context
	span    *tracing.Span
	process *execution.Process
	outcome *Outcome
}

func (d *dispatch) run(trigger string) {
	p := d.process
	if d.machine.HasTimedOut(p) {
		d.outcome.TimedOut = true
		d.logger.Warn("process timed out", "process", p.ID, "state", p.State, "timeout", d.machine.Timeout(p))
		d.fail(execution.TimeoutMessage)
		return
	}
	if p.State == execution.StateError && !d.machine.CanRetry(p) {
		d.transition(execution.StateTerminated, "")
		return
	}
	// A sweep only detects stale processes; errored ones get their retry.
	if trigger == TriggerSweep && p.State != execution.StateError {
		return
	}
	variables, err := d.builder.Build(d.ctx, p, trigger)
	if err != nil {
		d.fail(fmt.Sprintf("failed to build context: %v", err))
		return
	}
	d.snapshot(trigger, variables)

	if trigger == TriggerTimer {
		result, err := d.evaluate(variables, d.engine.EvaluateTimers)
		if err != nil {
			d.logger.Warn("timer rules failed", "process", p.ID, "error", err)
			d.outcome.Error = err.Error()
			return
		}
		d.apply(result)
		if result.Blocked != "" {
			d.logger.Warn("timer rules blocked", "process", p.ID, "resource", result.Blocked)
		}
		d.reschedule()
		return
	}

	if !d.transition(execution.StateReady, "") {
		return
	}
	if !d.transition(execution.StateRunning, "") {
		return
	}
	result, err := d.evaluate(variables, d.engine.Evaluate)
	if err != nil {
		d.fail(err.Error())
		return
	}
	d.apply(result)
	switch {
	case result.Blocked != "":
		if d.transition(execution.StateBlocked, "") {
			p.BlockedOn = result.Blocked
		}
	case !result.Done():
		d.transition(execution.StateWaiting, "")
	default:
		d.transition(execution.StateTerminated, "")
	}
}

// reschedule advances a due ScheduledTime by TimeWindow, or clears it.
func (d *dispatch) reschedule() {
	p := d.process
	now := d.now()
	if p.ScheduledTime == nil || p.ScheduledTime.After(now) {
		return
	}
	if p.TimeWindow <= 0 {
		p.ScheduledTime = nil
		return
	}
	next := *p.ScheduledTime
	for !next.After(now) {
		next = next.Add(p.TimeWindow)
	}
	p.ScheduledTime = &next
}

type evaluateFn func(ctx context.Context, p *execution.Process, variables map[string]interface{}) (*rule.Result, error)

// evaluate runs fn, turning a panic into an error.
func (d *dispatch) evaluate(variables map[string]interface{}, fn evaluateFn) (result *rule.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("rule evaluation panic", "process", d.process.ID, "panic", r, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("%w: panic: %v", rule.ErrActionExecution, r)
		}
	}()
	return fn(d.ctx, d.process.Clone(), variables)
}

func (d *dispatch) apply(result *rule.Result) {
	d.outcome.Result = result
	p := d.process
	if len(result.Payload) > 0 {
		p.MergeControl(result.Payload)
	}
	for resourceID, units := range result.Holdings {
		p.Hold(resourceID, units)
	}
	for _, skipped := range result.Skipped {
		d.logger.Debug("rule skipped", "process", p.ID, "rule", skipped.Rule.ID, "error", skipped.Error)
	}
}

// fail moves the process to ERROR, or TERMINATED when ERROR is not
// reachable or no retry is left.
func (d *dispatch) fail(message string) {
	p := d.process
	d.outcome.Error = message
	if p.State == execution.StateNew {
		d.transition(execution.StateReady, "")
	}
	if d.transition(execution.StateError, message) {
		if !d.machine.CanRetry(p) {
			d.transition(execution.StateTerminated, "")
		}
		return
	}
	d.outcome.Refused = ""
	d.transition(execution.StateTerminated, "")
}

func (d *dispatch) transition(target execution.State, message string) bool {
	p := d.process
	from := p.State
	if !d.machine.Transition(p, target, message) {
		d.outcome.Refused = target
		d.logger.Warn("transition refused", "process", p.ID, "from", from, "to", target, "error", execution.ErrTransitionRefused)
		return false
	}
	d.outcome.Transitions = append(d.outcome.Transitions, &Transition{From: from, To: target, At: p.UpdatedAt})
	metrics.Add(d.ctx, metrics.Transitions, "to", string(target))
	d.span.AddEvent("transition", map[string]string{"from": string(from), "to": string(target)})
	return true
}

func (d *dispatch) snapshot(trigger string, variables map[string]interface{}) {
	if d.snapshots == nil {
		return
	}
	p := d.process
	snapshot := &model.Snapshot{
		ProcessID: p.ID,
		Version:   p.Version + 1,
		Trigger:   trigger,
		Context:   model.CloneMap(variables),
		CreatedAt: d.now(),
	}
	if err := d.snapshots.Append(d.ctx, snapshot); err != nil {
		if errors.Is(err, dao.ErrDuplicate) {
			d.logger.Warn("snapshot version exists", "process", p.ID, "version", snapshot.Version)
		} else {
			d.logger.Error("failed to append snapshot", "process", p.ID, "error", err)
		}
		return
	}
	p.Version = snapshot.Version
}

// persist releases holdings of finished processes and saves the process.
func (d *dispatch) persist() error {
	p := d.process
	if p.State == execution.StateTerminated || p.State == execution.StateError {
		d.release()
	}
	if err := d.processes.Save(d.ctx, p); err != nil {
		d.rollback()
		return fmt.Errorf("failed to save process %v: %w", p.ID, err)
	}
	if p.State.IsTerminal() {
		d.locks.terminated(p.ID)
	}
	return nil
}

func (d *dispatch) release() {
	p := d.process
	for resourceID, units := range p.Holdings {
		if err := d.ledger.Release(d.ctx, resourceID, units); err != nil {
			d.logger.Error("failed to release resource", "process", p.ID, "resource", resourceID, "units", units, "error", err)
			continue
		}
		delete(p.Holdings, resourceID)
	}
	if len(p.Holdings) == 0 {
		p.Holdings = nil
	}
}

// rollback returns units acquired by this dispatch when the process holding
// them could not be saved.
func (d *dispatch) rollback() {
	result := d.outcome.Result
	if result == nil {
		return
	}
	p := d.process
	for resourceID, units := range result.Holdings {
		if p.Holdings[resourceID] == 0 {
			continue
		}
		if err := d.ledger.Release(d.ctx, resourceID, units); err != nil {
			d.logger.Error("failed to roll back resource", "process", p.ID, "resource", resourceID, "units", units, "error", err)
		}
	}
}

func (d *dispatch) publish() {
	if d.notifier == nil {
		return
	}
	p := d.process
	for _, transition := range d.outcome.Transitions {
		notification := event.Notification{
			ProcessID: p.ID,
			Seq:       p.Seq,
			ServiceID: p.ServiceID,
			From:      string(transition.From),
			To:        string(transition.To),
			Channel:   event.Channel(p.OperatorID, p.EntityID),
			Summary:   event.Summarize(p.ServiceID, p.Seq, string(transition.From), string(transition.To)),
			At:        transition.At,
		}
		if transition.To == execution.StateError {
			notification.Error = p.ErrorMessage
		}
		anEvent := event.NewEvent(&event.Context{ProcessID: p.ID, ServiceID: p.ServiceID, EventType: event.EventTypeTransition, Trigger: d.outcome.Trigger}, notification)
		if err := d.notifier.Publish(d.ctx, anEvent); err != nil {
			d.logger.Debug("notification dropped", "process", p.ID, "error", err)
		}
	}
}

// followUp schedules spawned children and send-back targets.
func (d *dispatch) followUp() {
	result := d.outcome.Result
	if result == nil {
		return
	}
	for _, id := range result.Spawned {
		d.enqueue(d.ctx, id, TriggerCreated, d.process.Priority, false)
	}
	for _, id := range result.FollowUp {
		d.enqueue(d.ctx, id, TriggerInput, d.process.Priority, false)
	}
}

func (d *dispatch) done() *Outcome {
	d.outcome.State = d.process.State
	d.outcome.Version = d.process.Version
	return d.outcome
}
