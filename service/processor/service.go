package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/viant/ruleflow/internal/clock"
	"github.com/viant/ruleflow/service/messaging"
	"github.com/viant/ruleflow/service/messaging/memory"
	"github.com/viant/ruleflow/service/scheduler"
	"github.com/viant/ruleflow/tracing"
)

// Config represents processor configuration
type Config struct {
	// WorkerCount is the number of workers dispatching processes
	WorkerCount int `yaml:"workers" json:"workers" env:"RULEFLOW_WORKERS" env-default:"4"`
	// Queue configures the in-memory dispatch queue
	Queue memory.Config `yaml:"queue" json:"queue"`
}

// DefaultConfig returns the default processor configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
		Queue:       memory.DefaultConfig(),
	}
}

// Request asks for one dispatch of a process.
type Request struct {
	ProcessID  string    `json:"processId"`
	Trigger    string    `json:"trigger"`
	Priority   uint8     `json:"priority"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Dispatcher dispatches a process.
type Dispatcher interface {
	Dispatch(ctx context.Context, processID, trigger string) (*scheduler.Outcome, error)
}

// Service runs dispatch workers
type Service struct {
	config     Config
	dispatcher Dispatcher
	queue      messaging.Queue[Request]
	logger     hclog.Logger

	workers  []*worker
	workerWg sync.WaitGroup
	mux      sync.Mutex
	started  bool
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

var _ scheduler.Enqueuer = (*Service)(nil)

// Enqueue queues a dispatch request.
func (s *Service) Enqueue(ctx context.Context, processID, trigger string, priority uint8) error {
	return s.queue.Publish(ctx, &Request{ProcessID: processID, Trigger: trigger, Priority: priority, EnqueuedAt: clock.Now()})
}

// Start begins dispatching
func (s *Service) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.started {
		return fmt.Errorf("processor already started")
	}
	s.started = true
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, w)
		s.workerWg.Add(1)
		go w.run()
	}
	s.logger.Info("processor started", "workers", s.config.WorkerCount)
	return nil
}

// run processes messages from the queue
func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.processMessage(w.ctx, msg); pErr != nil {
			w.service.logger.Warn("failed to process message", "worker", w.id, "error", pErr)
		}
	}
}

func (s *Service) processMessage(ctx context.Context, message messaging.Message[Request]) (err error) {
	request := message.T()
	ctx, span := tracing.StartSpan(ctx, "processor.dispatch", tracing.KindConsumer)
	span.WithAttributes(map[string]string{"process": request.ProcessID, "trigger": request.Trigger})
	defer func() { tracing.EndSpan(span, err) }()

	outcome, err := s.dispatcher.Dispatch(ctx, request.ProcessID, request.Trigger)
	if err != nil {
		if errors.Is(err, scheduler.ErrProcessNotFound) {
			s.logger.Debug("dropping request for missing process", "process", request.ProcessID)
			return message.Ack()
		}
		return errors.Join(err, message.Nack(err))
	}
	s.logger.Debug("dispatched", "process", request.ProcessID, "trigger", request.Trigger, "from", outcome.From, "state", outcome.State)
	return message.Ack()
}

// Shutdown stops the workers and waits for in-flight dispatches.
func (s *Service) Shutdown() {
	s.mux.Lock()
	workers := s.workers
	s.workers = nil
	s.started = false
	s.mux.Unlock()
	for _, w := range workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
}

// New creates a processor
func New(dispatcher Dispatcher, options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		dispatcher: dispatcher,
		logger:     hclog.Default().Named("processor"),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if s.config.WorkerCount <= 0 {
		s.config.WorkerCount = DefaultConfig().WorkerCount
	}
	if s.queue == nil {
		s.queue = memory.NewQueue[Request](s.config.Queue, func(r *Request) int { return int(r.Priority) })
	}
	return s, nil
}
