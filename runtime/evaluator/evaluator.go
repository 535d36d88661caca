// Package evaluator evaluates rule predicates in a sandbox. Expressions are
// written in CEL, parsed once, and cached as compiled programs; evaluation
// can read the supplied variables but cannot call out to the host.
package evaluator

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrConditionEvaluation reports a predicate that could not be evaluated to a boolean.
var ErrConditionEvaluation = errors.New("condition evaluation failed")

// Config controls the evaluator sandbox.
type Config struct {
	// CacheSize bounds the number of compiled programs kept.
	CacheSize int `json:"cacheSize" yaml:"cacheSize"`
	// CostLimit bounds runtime cost of a single evaluation.
	CostLimit uint64 `json:"costLimit" yaml:"costLimit"`
}

// DefaultConfig returns evaluator defaults.
func DefaultConfig() Config {
	return Config{CacheSize: 1024, CostLimit: 100000}
}

type compiled struct {
	program cel.Program
	err     error
}

// Evaluator evaluates boolean expressions over a flat variable map.
type Evaluator struct {
	config Config
	env    *cel.Env
	cache  *lru.Cache[string, *compiled]
}

// Evaluate returns the boolean value of expr. A malformed expression, an
// undefined variable or a non boolean result yields ErrConditionEvaluation.
func (e *Evaluator) Evaluate(expr string, variables map[string]interface{}) (bool, error) {
	entry := e.compile(expr)
	if entry.err != nil {
		return false, entry.err
	}
	out, _, err := entry.program.Eval(Normalize(variables))
	if err != nil {
		return false, fmt.Errorf("%w: %q: %v", ErrConditionEvaluation, expr, err)
	}
	value, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q: expected bool result, got %v", ErrConditionEvaluation, expr, out.Type())
	}
	return value, nil
}

// Compile checks expr syntax without evaluating it.
func (e *Evaluator) Compile(expr string) error {
	return e.compile(expr).err
}

func (e *Evaluator) compile(expr string) *compiled {
	if entry, ok := e.cache.Get(expr); ok {
		return entry
	}
	entry := &compiled{}
	if expr == "" {
		entry.err = fmt.Errorf("%w: empty expression", ErrConditionEvaluation)
	} else if ast, issues := e.env.Parse(expr); issues != nil && issues.Err() != nil {
		entry.err = fmt.Errorf("%w: %q: %v", ErrConditionEvaluation, expr, issues.Err())
	} else if entry.program, entry.err = e.env.Program(ast, cel.CostLimit(e.config.CostLimit)); entry.err != nil {
		entry.err = fmt.Errorf("%w: %q: %v", ErrConditionEvaluation, expr, entry.err)
	}
	e.cache.Add(expr, entry)
	return entry
}

// New creates an evaluator.
func New(config Config) (*Evaluator, error) {
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultConfig().CacheSize
	}
	if config.CostLimit == 0 {
		config.CostLimit = DefaultConfig().CostLimit
	}
	env, err := cel.NewEnv(cel.CrossTypeNumericComparisons(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}
	cache, err := lru.New[string, *compiled](config.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Evaluator{config: config, env: env, cache: cache}, nil
}
