package server

import (
	"time"

	"github.com/viant/ruleflow/model"
)

// CreateProcessRequest creates a top-level process.
type CreateProcessRequest struct {
	ServiceID      string                 `json:"serviceId" minLength:"1"`
	OperatorID     string                 `json:"operatorId,omitempty"`
	EntityID       string                 `json:"entityId,omitempty"`
	ContractID     string                 `json:"contractId,omitempty"`
	Priority       uint8                  `json:"priority,omitempty"`
	Business       map[string]interface{} `json:"business,omitempty"`
	Schedule       map[string]interface{} `json:"schedule,omitempty"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
	Record         *model.RecordRef       `json:"record,omitempty"`
	ScheduledTime  *time.Time             `json:"scheduledTime,omitempty"`
	TimeoutSeconds int                    `json:"timeoutSeconds,omitempty"`
	MaxRetries     int                    `json:"maxRetries,omitempty"`
	// Dispatch evaluates the new process before responding.
	Dispatch bool `json:"dispatch,omitempty"`
}

// DispatchRequest asks for one evaluation of a process.
type DispatchRequest struct {
	Trigger string `json:"trigger,omitempty" enum:"created,updated,timer,input,resource,sweep"`
	// Async queues the dispatch instead of running it inline.
	Async bool `json:"async,omitempty"`
}

// AssignRequest sets the operator of a process.
type AssignRequest struct {
	OperatorID string `json:"operatorId" minLength:"1"`
}

// PriorityRequest changes the priority of a process.
type PriorityRequest struct {
	Priority uint8 `json:"priority"`
}

// UnitsRequest allocates or releases resource units.
type UnitsRequest struct {
	Units int `json:"units" minimum:"1"`
}
