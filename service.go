package ruleflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/ruleflow/internal/clock"
	"github.com/viant/ruleflow/model/types"
	"github.com/viant/ruleflow/runtime/binding"
	"github.com/viant/ruleflow/runtime/evaluator"
	"github.com/viant/ruleflow/runtime/execution"
	alog "github.com/viant/ruleflow/service/action/log"
	"github.com/viant/ruleflow/service/action/nop"
	aprocess "github.com/viant/ruleflow/service/action/process"
	"github.com/viant/ruleflow/service/allocator"
	"github.com/viant/ruleflow/service/dao"
	dmemory "github.com/viant/ruleflow/service/dao/definition/memory"
	pfs "github.com/viant/ruleflow/service/dao/process/fs"
	pmemory "github.com/viant/ruleflow/service/dao/process/memory"
	resmemory "github.com/viant/ruleflow/service/dao/resource/memory"
	rmemory "github.com/viant/ruleflow/service/dao/rule/memory"
	smemory "github.com/viant/ruleflow/service/dao/snapshot/memory"
	"github.com/viant/ruleflow/service/dao/sqlite"
	"github.com/viant/ruleflow/service/event"
	"github.com/viant/ruleflow/service/instruction"
	"github.com/viant/ruleflow/service/meta"
	"github.com/viant/ruleflow/service/processor"
	"github.com/viant/ruleflow/service/record"
	recmemory "github.com/viant/ruleflow/service/record/memory"
	"github.com/viant/ruleflow/service/rule"
	"github.com/viant/ruleflow/service/scheduler"
	"github.com/viant/ruleflow/service/spawner"
	"github.com/viant/ruleflow/service/sweeper"
)

// Stores groups the persistence stores used by the runtime.
type Stores struct {
	Processes dao.ProcessStore
	Rules     dao.RuleStore
	Services  dao.ServiceStore
	Resources dao.ResourceStore
	Snapshots dao.SnapshotStore
	closer    io.Closer
}

// Close releases the underlying storage, if any.
func (s *Stores) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// MemoryStores returns in-memory stores.
func MemoryStores() *Stores {
	return &Stores{
		Processes: pmemory.New(),
		Rules:     rmemory.New(),
		Services:  dmemory.New(),
		Resources: resmemory.New(),
		Snapshots: smemory.New(),
	}
}

// SQLiteStores opens (and migrates) the SQLite database at path.
func SQLiteStores(path string) (*Stores, error) {
	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Processes: db.Processes,
		Rules:     db.Rules,
		Services:  db.Services,
		Resources: db.Resources,
		Snapshots: db.Snapshots,
		closer:    db,
	}, nil
}

// FSStores keeps processes as JSON documents under baseURL and everything
// else in memory.
func FSStores(ctx context.Context, baseURL string, logger hclog.Logger) (*Stores, error) {
	processes, err := pfs.New(ctx, baseURL, logger)
	if err != nil {
		return nil, err
	}
	ret := MemoryStores()
	ret.Processes = processes
	return ret, nil
}

// Service represents ruleflow service
type Service struct {
	config        *Config
	runtime       *Runtime
	logger        hclog.Logger
	now           func() time.Time
	stores        *Stores
	records       record.Service
	instructions  []types.Service
	listeners     []func(*event.Event[event.Notification])
	metaBaseURL   string
	metaFsOptions []storage.Option
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}
	r := s.runtime
	r.stores = s.stores
	r.logger = s.logger.Named("runtime")
	eval, err := evaluator.New(s.config.Evaluator)
	if err != nil {
		return err
	}
	r.ledger = allocator.New(s.stores.Resources, allocator.WithNow(s.now), allocator.WithLogger(s.logger))
	r.spawner = spawner.New(s.stores.Processes, s.stores.Services, s.records,
		spawner.WithNow(s.now), spawner.WithLogger(s.logger))
	r.registry = instruction.New(nop.New(), alog.New(s.logger), aprocess.New(r.spawner))
	for _, service := range s.instructions {
		r.registry.Register(service)
	}
	r.engine = rule.New(s.stores.Rules, eval, r.ledger,
		rule.WithDispatcher(r.registry),
		rule.WithSpawner(r.spawner),
		rule.WithServices(s.stores.Services),
		rule.WithLogger(s.logger))
	builder := binding.New(s.stores.Processes, s.records, binding.WithNow(s.now), binding.WithLogger(s.logger))
	machine := execution.NewMachine(
		execution.WithTimeout(s.config.Scheduler.Timeout),
		execution.WithMaxRetries(s.config.Scheduler.MaxRetries),
		execution.WithNow(s.now))

	if r.events, err = event.New(event.VendorMemory, event.WithLogger(s.logger)); err != nil {
		return err
	}
	notifier, err := event.PublisherOf[event.Notification](r.events)
	if err != nil {
		return err
	}
	if err = event.SetListenerOf[event.Notification](r.events, r.notify); err != nil {
		return err
	}
	r.listeners = s.listeners

	r.scheduler = scheduler.New(s.stores.Processes, builder, r.engine, r.ledger,
		scheduler.WithMachine(machine),
		scheduler.WithSnapshots(s.stores.Snapshots),
		scheduler.WithNotifier(notifier),
		scheduler.WithEnqueuer(r),
		scheduler.WithLockGrace(s.config.Scheduler.LockGrace),
		scheduler.WithNow(s.now),
		scheduler.WithLogger(s.logger))
	r.ledger.OnRelease(r.scheduler.OnResourceReleased)
	if r.processor, err = processor.New(r.scheduler, processor.WithConfig(s.config.Processor), processor.WithLogger(s.logger)); err != nil {
		return err
	}
	r.sweeper = sweeper.New(s.stores.Processes, r.processor, s.config.Sweeper,
		sweeper.WithLockEvictor(r.scheduler),
		sweeper.WithNow(s.now),
		sweeper.WithLogger(s.logger))
	r.meta = meta.New(afs.New(), s.metaBaseURL, meta.WithCompiler(eval), meta.WithFsOptions(s.metaFsOptions...))
	return nil
}

// RegisterInstructions registers instruction services after construction.
func (s *Service) RegisterInstructions(services ...types.Service) {
	for i := range services {
		s.runtime.registry.Register(services[i])
	}
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Runtime returns the runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

func (s *Service) ensureBaseSetup() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	s.config.defaults()
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if s.logger == nil {
		s.logger = hclog.Default().Named(s.config.Name)
	}
	if s.now == nil {
		s.now = clock.Now
	}
	if s.records == nil {
		s.records = recmemory.New()
	}
	if s.stores != nil {
		return nil
	}
	switch s.config.Store.Driver {
	case DriverSQLite:
		stores, err := SQLiteStores(s.config.Store.DSN)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		s.stores = stores
	case DriverFS:
		stores, err := FSStores(context.Background(), s.config.Store.DSN, s.logger)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		s.stores = stores
	default:
		s.stores = MemoryStores()
	}
	return nil
}

// New creates a ruleflow service.
func New(options ...Option) (*Service, error) {
	ret := &Service{runtime: &Runtime{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
