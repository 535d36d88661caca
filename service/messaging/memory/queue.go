package memory

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/ruleflow/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries int           `yaml:"maxRetries" json:"maxRetries"`
	RetryDelay time.Duration `yaml:"retryDelay" json:"retryDelay"`
	DeadLetter bool          `yaml:"deadLetter" json:"deadLetter"`
	// QueueBuffer bounds pending messages; Publish fails with messaging.ErrQueueFull beyond it.
	QueueBuffer int `yaml:"queueBuffer" json:"queueBuffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 10000,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	priority   int
	seq        uint64
	queue      *Queue[T]
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
}

// ID returns the message id
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return nil
}

// Nack indicates a failure in processing the message
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.retryCount++
	if m.retryCount <= m.queue.config.MaxRetries {
		retry := &Message[T]{
			id:         m.id,
			payload:    m.payload,
			priority:   m.priority,
			queue:      m.queue,
			retryCount: m.retryCount,
			createdAt:  time.Now(),
		}
		time.AfterFunc(m.queue.config.RetryDelay, func() {
			_ = m.queue.push(retry, true)
		})
	} else if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an in-memory priority messaging.Queue: higher priority
// first, publish order within a priority.
type Queue[T any] struct {
	pending  pending[T]
	seq      uint64
	priority func(t *T) int
	signal   chan struct{}
	dlq      []*Message[T]
	config   Config
	mu       sync.Mutex
	dlqMu    sync.Mutex
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{
		id:        uuid.New().String(),
		payload:   *t,
		queue:     q,
		createdAt: time.Now(),
	}
	if q.priority != nil {
		msg.priority = q.priority(t)
	}
	return q.push(msg, false)
}

func (q *Queue[T]) push(msg *Message[T], force bool) error {
	q.mu.Lock()
	if !force && len(q.pending) >= q.config.QueueBuffer {
		q.mu.Unlock()
		return messaging.ErrQueueFull
	}
	q.seq++
	msg.seq = q.seq
	heap.Push(&q.pending, msg)
	q.mu.Unlock()
	q.wake()
	return nil
}

func (q *Queue[T]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Consume retrieves the highest priority message, blocking until one is
// available or ctx is done.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			msg := heap.Pop(&q.pending).(*Message[T])
			remaining := len(q.pending)
			q.mu.Unlock()
			if remaining > 0 {
				q.wake()
			}
			return msg, nil
		}
		q.mu.Unlock()
		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// NewQueue creates a new in-memory queue. priority may be nil for FIFO order.
func NewQueue[T any](config Config, priority func(t *T) int) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		priority: priority,
		signal:   make(chan struct{}, 1),
		config:   config,
	}
}

type pending[T any] []*Message[T]

func (p pending[T]) Len() int { return len(p) }

func (p pending[T]) Less(i, j int) bool {
	if p[i].priority != p[j].priority {
		return p[i].priority > p[j].priority
	}
	return p[i].seq < p[j].seq
}

func (p pending[T]) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p *pending[T]) Push(x any) { *p = append(*p, x.(*Message[T])) }

func (p *pending[T]) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*p = old[:n-1]
	return item
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
