package execution

import (
	"fmt"
	"time"

	"github.com/viant/ruleflow/model"
)

// Process represents a running instance of a service
type Process struct {
	ID            string        `json:"id"`
	Seq           int64         `json:"seq"`
	ParentID      string        `json:"parentId,omitempty"`
	PreviousID    string        `json:"previousId,omitempty"`
	ServiceID     string        `json:"serviceId"`
	State         State         `json:"state"`
	Priority      uint8         `json:"priority"`
	ScheduledTime *time.Time    `json:"scheduledTime,omitempty"`
	TimeWindow    time.Duration `json:"timeWindow,omitempty"`
	OperatorID    string        `json:"operatorId,omitempty"`
	CreatorID     string        `json:"creatorId,omitempty"`
	EntityID      string        `json:"entityId,omitempty"`
	ContractID    string        `json:"contractId,omitempty"`
	// Business holds inheritable business context passed down to sub-processes.
	Business map[string]interface{} `json:"business,omitempty"`
	Record   *model.RecordRef       `json:"record,omitempty"`
	Control  map[string]interface{} `json:"control,omitempty"`
	Schedule map[string]interface{} `json:"schedule,omitempty"`

	RetryCount     int    `json:"retryCount"`
	MaxRetries     int    `json:"maxRetries,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	// BlockedOn is the resource a BLOCKED process waits for.
	BlockedOn string `json:"blockedOn,omitempty"`
	// Holdings maps resource id to units held by this process.
	Holdings map[string]int `json:"holdings,omitempty"`
	// Version is the last appended snapshot version.
	Version int `json:"version"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// NewProcess creates a process in NEW state.
func NewProcess(id string, seq int64, serviceID string, now time.Time) *Process {
	return &Process{
		ID:        id,
		Seq:       seq,
		ServiceID: serviceID,
		State:     StateNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the structural invariants of a process.
func (p *Process) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("process id was empty")
	}
	if p.ServiceID == "" {
		return fmt.Errorf("process %v: serviceId was empty", p.ID)
	}
	if !p.State.Valid() {
		return fmt.Errorf("process %v: invalid state %q", p.ID, p.State)
	}
	if (p.EndTime != nil) != (p.State == StateTerminated) {
		return fmt.Errorf("process %v: end time inconsistent with state %v", p.ID, p.State)
	}
	return p.Record.Validate()
}

// SetControl sets a control variable.
func (p *Process) SetControl(key string, value interface{}) {
	if p.Control == nil {
		p.Control = map[string]interface{}{}
	}
	p.Control[key] = value
}

// MergeControl merges values into control variables.
func (p *Process) MergeControl(values map[string]interface{}) {
	for k, v := range values {
		p.SetControl(k, v)
	}
}

// Hold records units held on a resource.
func (p *Process) Hold(resourceID string, units int) {
	if p.Holdings == nil {
		p.Holdings = map[string]int{}
	}
	p.Holdings[resourceID] += units
}

// Clone returns a deep copy.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	ret := *p
	ret.Business = model.CloneMap(p.Business)
	ret.Control = model.CloneMap(p.Control)
	ret.Schedule = model.CloneMap(p.Schedule)
	if p.Record != nil {
		record := *p.Record
		ret.Record = &record
	}
	if p.Holdings != nil {
		ret.Holdings = make(map[string]int, len(p.Holdings))
		for k, v := range p.Holdings {
			ret.Holdings[k] = v
		}
	}
	ret.ScheduledTime = cloneTime(p.ScheduledTime)
	ret.StartTime = cloneTime(p.StartTime)
	ret.EndTime = cloneTime(p.EndTime)
	return &ret
}

// CopyFrom overwrites p with a deep copy of src.
func (p *Process) CopyFrom(src *Process) {
	*p = *src.Clone()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ret := *t
	return &ret
}
