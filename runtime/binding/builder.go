// Package binding assembles the flat evaluation context a process's rules are
// evaluated against.
package binding

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
)

// Well-known binding names.
const (
	KeyProcess  = "process"
	KeyInstance = "instance"
	KeyEntity   = "entity"
	KeyContract = "contract"
	KeyCreated  = "created"
	KeyNow      = "now"
	KeyTrigger  = "trigger"
	KeyRecord   = "record"
)

// TriggerCreated marks the first evaluation of a newly saved process.
const TriggerCreated = "created"

// ProcessLoader loads ancestor processes.
type ProcessLoader interface {
	Load(ctx context.Context, id string) (*execution.Process, error)
}

// RecordReader resolves business record fields.
type RecordReader interface {
	Fields(ctx context.Context, ref *model.RecordRef) (map[string]interface{}, error)
}

// Builder builds evaluation contexts. It never mutates the processes it reads.
type Builder struct {
	processes ProcessLoader
	records   RecordReader
	now       func() time.Time
	logger    hclog.Logger
}

// Build returns the context for p. Later sources override earlier ones:
// inherited ancestor subset, process attributes, record fields, control
// variables, schedule variables, well-known bindings.
func (b *Builder) Build(ctx context.Context, p *execution.Process, trigger string) (map[string]interface{}, error) {
	ret := map[string]interface{}{}
	if err := b.inherit(ctx, p, ret); err != nil {
		return nil, err
	}
	attributes := Attributes(p)
	for k, v := range p.Business {
		ret[k] = v
	}
	for k, v := range attributes {
		ret[k] = v
	}
	if p.Record != nil && b.records != nil {
		fields, err := b.records.Fields(ctx, p.Record)
		if err != nil && !errors.Is(err, dao.ErrNotFound) {
			return nil, err
		}
		for k, v := range fields {
			ret[k] = v
		}
		ret[KeyRecord] = p.Record.String()
	}
	for k, v := range p.Control {
		ret[k] = v
	}
	for k, v := range p.Schedule {
		ret[k] = v
	}
	ret[KeyProcess] = attributes
	ret[KeyInstance] = attributes
	if p.EntityID != "" {
		ret[KeyEntity] = p.EntityID
	}
	if p.ContractID != "" {
		ret[KeyContract] = p.ContractID
	}
	ret[KeyCreated] = trigger == TriggerCreated
	ret[KeyNow] = b.now()
	ret[KeyTrigger] = trigger
	return model.CloneMap(ret), nil
}

// inherit merges the inheritable subset of every ancestor, root first, so the
// nearest ancestor wins among ancestors.
func (b *Builder) inherit(ctx context.Context, p *execution.Process, dest map[string]interface{}) error {
	if p.ParentID == "" || b.processes == nil {
		return nil
	}
	var chain []*execution.Process
	visited := map[string]bool{p.ID: true}
	for parentID := p.ParentID; parentID != ""; {
		if visited[parentID] {
			b.logger.Warn("ancestor cycle detected", "process", p.ID, "ancestor", parentID)
			break
		}
		visited[parentID] = true
		parent, err := b.processes.Load(ctx, parentID)
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				b.logger.Debug("ancestor not found", "process", p.ID, "ancestor", parentID)
				break
			}
			return err
		}
		chain = append(chain, parent)
		parentID = parent.ParentID
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range Inheritable(chain[i]) {
			dest[k] = v
		}
	}
	return nil
}

// Inheritable returns the subset of p visible to descendants.
func Inheritable(p *execution.Process) map[string]interface{} {
	ret := make(map[string]interface{}, len(p.Business)+2)
	for k, v := range p.Business {
		ret[k] = v
	}
	if p.EntityID != "" {
		ret[KeyEntity] = p.EntityID
	}
	if p.ContractID != "" {
		ret[KeyContract] = p.ContractID
	}
	return ret
}

// Attributes returns scalar process attributes.
func Attributes(p *execution.Process) map[string]interface{} {
	ret := map[string]interface{}{
		"id":          p.ID,
		"seq":         p.Seq,
		"service":     p.ServiceID,
		"state":       string(p.State),
		"priority":    int64(p.Priority),
		"operator":    p.OperatorID,
		"creator":     p.CreatorID,
		"parent_id":   p.ParentID,
		"previous_id": p.PreviousID,
		"retry_count": int64(p.RetryCount),
		"time_window": p.TimeWindow,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
	if p.ScheduledTime != nil {
		ret["scheduled_time"] = *p.ScheduledTime
	}
	if p.StartTime != nil {
		ret["start_time"] = *p.StartTime
	}
	return ret
}

// New creates a context builder.
func New(processes ProcessLoader, records RecordReader, opts ...Option) *Builder {
	ret := &Builder{
		processes: processes,
		records:   records,
		now:       time.Now,
		logger:    hclog.Default().Named("binding"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
