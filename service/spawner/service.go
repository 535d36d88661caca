// Package spawner creates processes, either top-level or as sub-processes of
// a running parent.
package spawner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/internal/clock"
	"github.com/viant/ruleflow/internal/idgen"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/record"
)

// Listener is notified after a process was saved. Listeners must not block.
type Listener func(ctx context.Context, p *execution.Process)

// Request describes a process to create.
type Request struct {
	ServiceID      string                 `json:"serviceId"`
	Parent         *execution.Process     `json:"-"`
	PreviousID     string                 `json:"previousId,omitempty"`
	OperatorID     string                 `json:"operatorId,omitempty"`
	CreatorID      string                 `json:"creatorId,omitempty"`
	EntityID       string                 `json:"entityId,omitempty"`
	ContractID     string                 `json:"contractId,omitempty"`
	Priority       uint8                  `json:"priority,omitempty"`
	Business       map[string]interface{} `json:"business,omitempty"`
	Schedule       map[string]interface{} `json:"schedule,omitempty"`
	Record         *model.RecordRef       `json:"record,omitempty"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
	ScheduledTime  *time.Time             `json:"scheduledTime,omitempty"`
	TimeWindow     time.Duration          `json:"timeWindow,omitempty"`
	TimeoutSeconds int                    `json:"timeoutSeconds,omitempty"`
	MaxRetries     int                    `json:"maxRetries,omitempty"`
}

// Service creates processes.
type Service struct {
	processes dao.ProcessStore
	services  dao.ServiceStore
	records   record.Service
	now       func() time.Time
	logger    hclog.Logger
	listeners []Listener
	mux       sync.RWMutex
}

// Create saves a new process in NEW state.
func (s *Service) Create(ctx context.Context, request *Request) (*execution.Process, error) {
	if request == nil || request.ServiceID == "" {
		return nil, fmt.Errorf("service id was empty")
	}
	definition, err := s.services.Load(ctx, request.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service %v: %w", request.ServiceID, err)
	}
	p := execution.NewProcess(idgen.New(), idgen.Seq(), request.ServiceID, s.now())
	p.PreviousID = request.PreviousID
	p.OperatorID = request.OperatorID
	p.CreatorID = request.CreatorID
	p.EntityID = request.EntityID
	p.ContractID = request.ContractID
	p.Priority = request.Priority
	p.ScheduledTime = request.ScheduledTime
	p.TimeWindow = request.TimeWindow
	p.TimeoutSeconds = request.TimeoutSeconds
	p.MaxRetries = request.MaxRetries
	p.Schedule = model.CloneMap(request.Schedule)
	business := map[string]interface{}{}
	if parent := request.Parent; parent != nil {
		p.ParentID = parent.ID
		if p.PreviousID == "" {
			p.PreviousID = parent.ID
		}
		if p.EntityID == "" {
			p.EntityID = parent.EntityID
		}
		if p.ContractID == "" {
			p.ContractID = parent.ContractID
		}
		if p.Priority == 0 {
			p.Priority = parent.Priority
		}
		if p.CreatorID == "" {
			p.CreatorID = parent.OperatorID
		}
		for k, v := range model.CloneMap(parent.Business) {
			business[k] = v
		}
	}
	for k, v := range model.CloneMap(request.Business) {
		business[k] = v
	}
	if len(business) > 0 {
		p.Business = business
	}
	if p.Priority == 0 {
		p.Priority = definition.Config.Priority
	}
	p.Record = request.Record
	if p.Record == nil && s.records != nil && definition.Config.RecordKind != "" {
		if p.Record, err = s.records.Save(ctx, &definition.Config, nil, request.Fields); err != nil {
			return nil, fmt.Errorf("failed to create %v record: %w", definition.Config.RecordKind, err)
		}
	}
	if err = p.Validate(); err != nil {
		return nil, err
	}
	if err = s.processes.Save(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Debug("process created", "process", p.ID, "service", p.ServiceID, "parent", p.ParentID)
	s.notify(ctx, p)
	return p.Clone(), nil
}

// Spawn creates a sub-process of parent for serviceID. The child inherits
// entity, contract, business context and priority.
func (s *Service) Spawn(ctx context.Context, parent *execution.Process, serviceID string, fields map[string]interface{}) (*execution.Process, error) {
	return s.Create(ctx, &Request{ServiceID: serviceID, Parent: parent, Fields: fields})
}

// OnCreate registers a creation listener.
func (s *Service) OnCreate(listener Listener) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Service) notify(ctx context.Context, p *execution.Process) {
	s.mux.RLock()
	listeners := s.listeners
	s.mux.RUnlock()
	for _, listener := range listeners {
		listener(ctx, p.Clone())
	}
}

// New creates a spawner.
func New(processes dao.ProcessStore, services dao.ServiceStore, records record.Service, opts ...Option) *Service {
	ret := &Service{
		processes: processes,
		services:  services,
		records:   records,
		now:       clock.Now,
		logger:    hclog.Default().Named("spawner"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
