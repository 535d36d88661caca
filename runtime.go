package ruleflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/allocator"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/event"
	"github.com/viant/ruleflow/service/instruction"
	"github.com/viant/ruleflow/service/meta"
	"github.com/viant/ruleflow/service/processor"
	"github.com/viant/ruleflow/service/rule"
	"github.com/viant/ruleflow/service/scheduler"
	"github.com/viant/ruleflow/service/spawner"
	"github.com/viant/ruleflow/service/sweeper"
)

// ErrNotStarted is returned by operations that need running workers.
var ErrNotStarted = errors.New("runtime not started")

// Runtime represents a rule-driven process engine runtime
type Runtime struct {
	stores    *Stores
	ledger    *allocator.Service
	spawner   *spawner.Service
	registry  *instruction.Registry
	engine    *rule.Engine
	scheduler *scheduler.Service
	processor *processor.Service
	sweeper   *sweeper.Service
	events    *event.Service
	meta      *meta.Service
	listeners []func(*event.Event[event.Notification])
	logger    hclog.Logger

	mux     sync.Mutex
	started bool
	loops   sync.WaitGroup
}

var _ scheduler.Enqueuer = (*Runtime)(nil)

// CreateProcess creates a process in NEW state. Once the runtime is started
// the process is queued for its first evaluation.
func (r *Runtime) CreateProcess(ctx context.Context, request *spawner.Request) (*execution.Process, error) {
	p, err := r.spawner.Create(ctx, request)
	if err != nil {
		return nil, err
	}
	if r.isStarted() {
		if err := r.processor.Enqueue(ctx, p.ID, scheduler.TriggerCreated, p.Priority); err != nil {
			r.logger.Warn("failed to enqueue created process", "process", p.ID, "error", err)
		}
	}
	return p, nil
}

// Dispatch evaluates a process synchronously.
func (r *Runtime) Dispatch(ctx context.Context, processID, trigger string) (*scheduler.Outcome, error) {
	return r.scheduler.Dispatch(ctx, processID, trigger)
}

// Enqueue queues an asynchronous dispatch; workers pick it up once started.
func (r *Runtime) Enqueue(ctx context.Context, processID, trigger string, priority uint8) error {
	return r.processor.Enqueue(ctx, processID, trigger, priority)
}

// Assign sets the operator of a process.
func (r *Runtime) Assign(ctx context.Context, processID, operatorID string) (*execution.Process, error) {
	return r.scheduler.Assign(ctx, processID, operatorID)
}

// SetPriority changes the dispatch priority of a process.
func (r *Runtime) SetPriority(ctx context.Context, processID string, priority uint8) (*execution.Process, error) {
	return r.scheduler.SetPriority(ctx, processID, priority)
}

// Process returns a process
func (r *Runtime) Process(ctx context.Context, id string) (*execution.Process, error) {
	return r.stores.Processes.Load(ctx, id)
}

// Processes lists processes matching every parameter.
func (r *Runtime) Processes(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	return r.stores.Processes.List(ctx, parameters...)
}

// Children returns direct sub-processes of a process.
func (r *Runtime) Children(ctx context.Context, parentID string) ([]*execution.Process, error) {
	return r.stores.Processes.List(ctx, dao.NewParameter(dao.ParamParentID, parentID))
}

// Snapshots returns the context snapshots of a process ordered by version.
func (r *Runtime) Snapshots(ctx context.Context, processID string) ([]*model.Snapshot, error) {
	return r.stores.Snapshots.List(ctx, processID)
}

// Allocate takes units of a resource.
func (r *Runtime) Allocate(ctx context.Context, resourceID string, units int) error {
	return r.ledger.Allocate(ctx, resourceID, units)
}

// Release returns units of a resource; processes blocked on it are re-dispatched.
func (r *Runtime) Release(ctx context.Context, resourceID string, units int) error {
	return r.ledger.Release(ctx, resourceID, units)
}

// Resource returns a ledger row.
func (r *Runtime) Resource(ctx context.Context, resourceID string) (*model.Resource, error) {
	return r.ledger.Resource(ctx, resourceID)
}

// Resources lists ledger rows.
func (r *Runtime) Resources(ctx context.Context) ([]*model.Resource, error) {
	return r.ledger.Resources(ctx)
}

// RegisterResource creates or resizes a resource.
func (r *Runtime) RegisterResource(ctx context.Context, resource *model.Resource) error {
	return r.ledger.Register(ctx, resource)
}

// Instructions lists registered instruction names.
func (r *Runtime) Instructions() []string {
	return r.registry.Names()
}

// LoadDefinitions loads the bundle at URL and installs its definitions.
func (r *Runtime) LoadDefinitions(ctx context.Context, URL string) (*meta.Bundle, error) {
	bundle, err := r.meta.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	return bundle, r.install(ctx, bundle)
}

// InstallDefinitions decodes YAML bundle data and installs its definitions.
func (r *Runtime) InstallDefinitions(ctx context.Context, data []byte) (*meta.Bundle, error) {
	bundle, err := r.meta.Decode(data)
	if err != nil {
		return nil, err
	}
	return bundle, r.install(ctx, bundle)
}

func (r *Runtime) install(ctx context.Context, bundle *meta.Bundle) error {
	if err := bundle.Install(ctx, r.stores.Services, r.stores.Rules, r.ledger); err != nil {
		return err
	}
	r.logger.Info("definitions installed", "services", len(bundle.Services), "rules", len(bundle.Rules), "resources", len(bundle.Resources))
	return nil
}

// Sweep runs one stale-process sweep and reports how many processes were queued.
func (r *Runtime) Sweep(ctx context.Context) (int, error) {
	return r.sweeper.Sweep(ctx)
}

// Start starts the dispatch workers and the sweep loop.
func (r *Runtime) Start(ctx context.Context) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.started {
		return fmt.Errorf("runtime already started")
	}
	if err := r.processor.Start(ctx); err != nil {
		return err
	}
	r.loops.Add(1)
	go func() {
		defer r.loops.Done()
		if err := r.sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("sweeper stopped", "error", err)
		}
	}()
	r.started = true
	return nil
}

// Shutdown stops workers, waits for in-flight dispatches and closes the stores.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mux.Lock()
	started := r.started
	r.started = false
	r.mux.Unlock()
	if started {
		r.sweeper.Shutdown()
		r.processor.Shutdown()
		r.loops.Wait()
	}
	r.scheduler.Wait()
	r.events.Close()
	return r.stores.Close()
}

func (r *Runtime) isStarted() bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.started
}

func (r *Runtime) notify(e *event.Event[event.Notification]) {
	n := e.Data
	r.logger.Debug("transition", "process", n.ProcessID, "from", n.From, "to", n.To, "channel", n.Channel)
	for _, listener := range r.listeners {
		listener(e)
	}
}
