package scheduler

import (
	"time"

	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/rule"
)

// Dispatch triggers.
const (
	TriggerCreated  = "created"
	TriggerUpdated  = "updated"
	TriggerTimer    = "timer"
	TriggerInput    = "input"
	TriggerResource = "resource"
	TriggerSweep    = "sweep"
)

// Triggers lists every known trigger.
var Triggers = []string{TriggerCreated, TriggerUpdated, TriggerTimer, TriggerInput, TriggerResource, TriggerSweep}

// Transition is an applied state change.
type Transition struct {
	From execution.State `json:"from"`
	To   execution.State `json:"to"`
	At   time.Time       `json:"at"`
}

// Outcome reports what one dispatch did.
type Outcome struct {
	ProcessID   string          `json:"processId"`
	Trigger     string          `json:"trigger"`
	From        execution.State `json:"from"`
	State       execution.State `json:"state"`
	Transitions []*Transition   `json:"transitions,omitempty"`
	// Refused is the target of a transition the state machine rejected.
	Refused  execution.State `json:"refused,omitempty"`
	TimedOut bool            `json:"timedOut,omitempty"`
	Error    string          `json:"error,omitempty"`
	Version  int             `json:"version"`
	Result   *rule.Result    `json:"result,omitempty"`
}

// Changed reports whether the process changed state.
func (o *Outcome) Changed() bool {
	return len(o.Transitions) > 0
}
