package types

import (
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
)

// Input is passed to every instruction.
type Input struct {
	// Process is a read-only copy of the dispatched process.
	Process *execution.Process
	Rule    *model.Rule
	// Operand is the rule's operand service.
	Operand string
	// Context is the rule's evaluation context, parameters included.
	Context map[string]interface{}
}

// Value returns a context variable.
func (i *Input) Value(key string) (interface{}, bool) {
	if i == nil || i.Context == nil {
		return nil, false
	}
	v, ok := i.Context[key]
	return v, ok
}

// Output collects instruction effects.
type Output struct {
	// Payload is merged into the process control variables.
	Payload map[string]interface{}
	// Cancel stops execution of the remaining actions.
	Cancel bool
	// Wait asks the scheduler to keep the process waiting for input.
	Wait bool
	// Spawned lists child processes created by the instruction.
	Spawned []string
	// FollowUp lists processes to re-dispatch once the current dispatch ends.
	FollowUp []string
}

// Set stores a payload value.
func (o *Output) Set(key string, value interface{}) {
	if o.Payload == nil {
		o.Payload = map[string]interface{}{}
	}
	o.Payload[key] = value
}
