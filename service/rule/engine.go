// Package rule evaluates the rules of a process's service and executes the
// actions of those that match.
package rule

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/metrics"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/model/types"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/allocator"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/tracing"
)

// ErrActionExecution reports a failed rule action.
var ErrActionExecution = errors.New("action execution failed")

// Evaluator evaluates rule predicates.
type Evaluator interface {
	Evaluate(expr string, variables map[string]interface{}) (bool, error)
}

// Ledger acquires and returns resource units.
type Ledger interface {
	Allocate(ctx context.Context, resourceID string, units int) error
	Release(ctx context.Context, resourceID string, units int) error
}

// Dispatcher executes named instructions.
type Dispatcher interface {
	Execute(ctx context.Context, name string, input *types.Input) (*types.Output, error)
}

// Spawner creates sub-processes.
type Spawner interface {
	Spawn(ctx context.Context, parent *execution.Process, serviceID string, fields map[string]interface{}) (*execution.Process, error)
}

// Engine evaluates rules.
type Engine struct {
	rules      dao.RuleStore
	services   dao.ServiceStore
	evaluator  Evaluator
	ledger     Ledger
	dispatcher Dispatcher
	spawner    Spawner
	logger     hclog.Logger
}

// Evaluate runs the data-driven rules of p's service against variables.
func (e *Engine) Evaluate(ctx context.Context, p *execution.Process, variables map[string]interface{}) (*Result, error) {
	rules, err := e.rules.ByService(ctx, p.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules of %v: %w", p.ServiceID, err)
	}
	var applicable model.Rules
	for _, r := range rules {
		if !r.IsTimer() {
			applicable = append(applicable, r)
		}
	}
	return e.run(ctx, p, applicable, variables)
}

// EvaluateTimers runs every timer rule regardless of service.
func (e *Engine) EvaluateTimers(ctx context.Context, p *execution.Process, variables map[string]interface{}) (*Result, error) {
	rules, err := e.rules.Timers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load timer rules: %w", err)
	}
	return e.run(ctx, p, rules, variables)
}

func (e *Engine) run(ctx context.Context, p *execution.Process, rules model.Rules, variables map[string]interface{}) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "rule.evaluate", tracing.KindInternal)
	span.WithAttributes(map[string]string{"process": p.ID, "service": p.ServiceID})
	defer func() { tracing.EndSpan(span, err) }()

	rules.Sort()
	result = &Result{Applicable: len(rules)}
	matched := e.match(ctx, p, rules, variables, result)
	result.Matched = len(matched)
	if len(matched) == 0 {
		return result, nil
	}

	held, blocked, err := e.acquire(ctx, matched)
	if err != nil {
		return nil, err
	}
	if blocked != "" {
		result.Blocked = blocked
		return result, nil
	}

	for i, m := range matched {
		var output *types.Output
		output, err = e.execute(ctx, p, m)
		if err != nil {
			e.releaseFrom(ctx, matched, held)
			e.logger.Warn("rule action failed", "process", p.ID, "rule", m.rule.ID, "error", err)
			err = fmt.Errorf("%w: rule %v: %w", ErrActionExecution, m.rule.ID, err)
			return nil, err
		}
		result.fire(m, output)
		metrics.Add(ctx, metrics.RuleFirings, "service", p.ServiceID)
		if output != nil && output.Cancel {
			result.Cancelled = true
			e.releaseFrom(ctx, matched[i+1:], held)
			break
		}
	}
	return result, nil
}

type match struct {
	rule      *model.Rule
	variables map[string]interface{}
}

func (e *Engine) match(ctx context.Context, p *execution.Process, rules model.Rules, variables map[string]interface{}, result *Result) []*match {
	var ret []*match
	for _, r := range rules {
		vars := model.CloneMap(variables)
		if vars == nil {
			vars = map[string]interface{}{}
		}
		for k, v := range model.CloneMap(r.ParameterValues) {
			vars[k] = v
		}
		ok, err := e.evaluator.Evaluate(r.Expression(), vars)
		if err != nil {
			e.logger.Warn("rule condition error", "process", p.ID, "rule", r.ID, "expression", r.Expression(), "error", err)
			metrics.Add(ctx, metrics.ConditionErrors, "service", p.ServiceID)
			result.Skipped = append(result.Skipped, &SkippedRule{Rule: r.Clone(), Error: err.Error()})
			continue
		}
		if ok {
			ret = append(ret, &match{rule: r, variables: vars})
		}
	}
	return ret
}

// acquire takes every resource the matched rules need or none of them.
func (e *Engine) acquire(ctx context.Context, matched []*match) (map[*match]bool, string, error) {
	held := map[*match]bool{}
	for _, m := range matched {
		units := m.rule.RequiredUnits()
		if units == 0 {
			continue
		}
		err := e.ledger.Allocate(ctx, m.rule.Resource, units)
		if err == nil {
			held[m] = true
			continue
		}
		e.releaseFrom(ctx, matched, held)
		if errors.Is(err, allocator.ErrResourceExhausted) {
			return nil, m.rule.Resource, nil
		}
		return nil, "", fmt.Errorf("%w: rule %v: %w", ErrActionExecution, m.rule.ID, err)
	}
	return held, "", nil
}

func (e *Engine) releaseFrom(ctx context.Context, matched []*match, held map[*match]bool) {
	for _, m := range matched {
		if !held[m] {
			continue
		}
		delete(held, m)
		if err := e.ledger.Release(ctx, m.rule.Resource, m.rule.RequiredUnits()); err != nil {
			e.logger.Error("failed to release resource", "resource", m.rule.Resource, "rule", m.rule.ID, "error", err)
		}
	}
}

func (e *Engine) execute(ctx context.Context, p *execution.Process, m *match) (*types.Output, error) {
	r := m.rule
	instruction := r.SystemInstruction
	if instruction == "" && r.OperandService == "" {
		instruction = e.defaultAction(ctx, p.ServiceID)
	}
	if instruction != "" {
		if e.dispatcher == nil {
			return nil, fmt.Errorf("no instruction dispatcher for %v", instruction)
		}
		return e.dispatcher.Execute(ctx, instruction, &types.Input{
			Process: p.Clone(),
			Rule:    r.Clone(),
			Operand: r.OperandService,
			Context: m.variables,
		})
	}
	if r.OperandService == "" {
		return &types.Output{}, nil
	}
	if e.spawner == nil {
		return nil, fmt.Errorf("no spawner for sub-process %v", r.OperandService)
	}
	child, err := e.spawner.Spawn(ctx, p, r.OperandService, model.CloneMap(r.ParameterValues))
	if err != nil {
		return nil, err
	}
	e.logger.Debug("sub-process spawned", "process", p.ID, "child", child.ID, "service", r.OperandService, "rule", r.ID)
	return &types.Output{Spawned: []string{child.ID}}, nil
}

func (e *Engine) defaultAction(ctx context.Context, serviceID string) string {
	if e.services == nil {
		return ""
	}
	definition, err := e.services.Load(ctx, serviceID)
	if err != nil {
		return ""
	}
	return definition.Config.Action
}

// New creates a rule engine.
func New(rules dao.RuleStore, evaluator Evaluator, ledger Ledger, opts ...Option) *Engine {
	ret := &Engine{
		rules:     rules,
		evaluator: evaluator,
		ledger:    ledger,
		logger:    hclog.Default().Named("rule"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
