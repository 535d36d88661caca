package model

// Service is a workflow template. Processes are instances of a service and
// rules are attached to it.
type Service struct {
	ID     string        `json:"id" yaml:"id"`
	Name   string        `json:"name" yaml:"name"`
	Config ServiceConfig `json:"config,omitempty" yaml:"config,omitempty"`
}

// ServiceConfig describes what a process of the service produces.
type ServiceConfig struct {
	// RecordKind is the kind of business record created for a spawned process.
	RecordKind RecordKind `json:"recordKind,omitempty" yaml:"recordKind,omitempty"`
	// Action is the default instruction used when a rule carries none.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
	// Fields are copied into a newly created business record.
	Fields map[string]interface{} `json:"fields,omitempty" yaml:"fields,omitempty"`
	// Priority is assigned to spawned processes that have no inherited priority.
	Priority uint8 `json:"priority,omitempty" yaml:"priority,omitempty"`
}
