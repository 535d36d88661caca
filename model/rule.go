package model

import (
	"fmt"
	"sort"
)

// Event is a named boolean predicate over context variables.
type Event struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
	// IsTimer marks rules driven by timer ticks instead of data changes.
	IsTimer bool `json:"isTimer,omitempty" yaml:"isTimer,omitempty"`
}

// Rule binds an event to an action for a service.
type Rule struct {
	ID        int64  `json:"id" yaml:"id"`
	ServiceID string `json:"serviceId" yaml:"serviceId"`
	Event     *Event `json:"event,omitempty" yaml:"event,omitempty"`
	// EventID references a bundle level event when Event is not inlined.
	EventID string `json:"eventId,omitempty" yaml:"eventId,omitempty"`
	Order   int    `json:"order" yaml:"order"`
	// OperandService is the target service of a sub-process or instruction.
	OperandService    string                 `json:"operandService,omitempty" yaml:"operandService,omitempty"`
	SystemInstruction string                 `json:"systemInstruction,omitempty" yaml:"systemInstruction,omitempty"`
	ParameterValues   map[string]interface{} `json:"parameterValues,omitempty" yaml:"parameterValues,omitempty"`
	// Resource names a ledger resource the action needs while the process runs.
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`
	Units    int    `json:"units,omitempty" yaml:"units,omitempty"`
}

// IsTimer reports whether the rule is driven by timer ticks.
func (r *Rule) IsTimer() bool {
	return r.Event != nil && r.Event.IsTimer
}

// Expression returns the predicate source or empty string.
func (r *Rule) Expression() string {
	if r.Event == nil {
		return ""
	}
	return r.Event.Expression
}

// RequiredUnits returns units to acquire, defaulting to one when a resource is named.
func (r *Rule) RequiredUnits() int {
	if r.Resource == "" {
		return 0
	}
	if r.Units <= 0 {
		return 1
	}
	return r.Units
}

// Validate checks rule structure.
func (r *Rule) Validate() error {
	if r.ServiceID == "" {
		return fmt.Errorf("rule %d: serviceId was empty", r.ID)
	}
	if r.Event == nil {
		return fmt.Errorf("rule %d: event was empty", r.ID)
	}
	if r.Event.Expression == "" {
		return fmt.Errorf("rule %d: event %v expression was empty", r.ID, r.Event.Name)
	}
	if r.Units < 0 {
		return fmt.Errorf("rule %d: units must be >= 0", r.ID)
	}
	return nil
}

// Clone returns a deep copy.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	ret := *r
	if r.Event != nil {
		event := *r.Event
		ret.Event = &event
	}
	ret.ParameterValues = CloneMap(r.ParameterValues)
	return &ret
}

// Rules is a rule collection.
type Rules []*Rule

// Sort orders rules by ascending order, ties broken by ascending id.
func (r Rules) Sort() {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Order != r[j].Order {
			return r[i].Order < r[j].Order
		}
		return r[i].ID < r[j].ID
	})
}
