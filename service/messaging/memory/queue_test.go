package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/service/messaging"
)

type dispatch struct {
	ProcessID string
	Trigger   string
	Priority  int
}

func newTestQueue(maxRetries int) *Queue[dispatch] {
	config := DefaultConfig()
	config.MaxRetries = maxRetries
	config.RetryDelay = 5 * time.Millisecond
	return NewQueue[dispatch](config, nil)
}

func TestQueue_AckNack(t *testing.T) {
	var testCases = []struct {
		description string
		maxRetries  int
		nacks       int
		expectDLQ   int
	}{
		{description: "ack on first delivery", maxRetries: 2, nacks: 0, expectDLQ: 0},
		{description: "redelivered after nack", maxRetries: 2, nacks: 1, expectDLQ: 0},
		{description: "dead lettered after retries", maxRetries: 2, nacks: 3, expectDLQ: 1},
		{description: "no retries configured", maxRetries: 0, nacks: 1, expectDLQ: 1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			queue := newTestQueue(testCase.maxRetries)
			ctx := context.Background()
			require.NoError(t, queue.Publish(ctx, &dispatch{ProcessID: "p-1", Trigger: "created"}))
			assert.Equal(t, 1, queue.Size())

			for i := 0; i < testCase.nacks; i++ {
				message, err := queue.Consume(ctx)
				require.NoError(t, err)
				assert.Equal(t, "p-1", message.T().ProcessID)
				assert.NoError(t, message.Nack(fmt.Errorf("attempt %d", i)))
				assert.Error(t, message.Ack(), "settled message")
			}
			if testCase.expectDLQ > 0 {
				time.Sleep(20 * time.Millisecond)
				assert.Equal(t, 0, queue.Size())
				assert.Equal(t, testCase.expectDLQ, queue.DLQSize())
				return
			}

			message, err := queue.Consume(ctx)
			require.NoError(t, err)
			assert.Equal(t, "created", message.T().Trigger)
			assert.NoError(t, message.Ack())
			assert.Error(t, message.Ack(), "double ack")
			assert.Equal(t, 0, queue.Size())
			assert.Equal(t, 0, queue.DLQSize())
		})
	}
}

func TestQueuePriority(t *testing.T) {
	queue := NewQueue[dispatch](DefaultConfig(), func(d *dispatch) int { return d.Priority })
	ctx := context.Background()

	var testCases = []struct {
		id       string
		priority int
	}{
		{id: "low-1", priority: 1},
		{id: "high-1", priority: 9},
		{id: "mid", priority: 5},
		{id: "high-2", priority: 9},
		{id: "low-2", priority: 1},
	}
	for _, testCase := range testCases {
		assert.NoError(t, queue.Publish(ctx, &dispatch{ProcessID: testCase.id, Priority: testCase.priority}))
	}

	var actual []string
	for range testCases {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		actual = append(actual, message.T().ProcessID)
		assert.NoError(t, message.Ack())
	}
	assert.Equal(t, []string{"high-1", "high-2", "mid", "low-1", "low-2"}, actual)
}

func TestQueueFull(t *testing.T) {
	config := DefaultConfig()
	config.QueueBuffer = 1
	queue := NewQueue[dispatch](config, nil)
	ctx := context.Background()
	assert.NoError(t, queue.Publish(ctx, &dispatch{ProcessID: "1"}))
	assert.ErrorIs(t, queue.Publish(ctx, &dispatch{ProcessID: "2"}), messaging.ErrQueueFull)
}

func TestQueue_ParallelProducers(t *testing.T) {
	const producers, perProducer = 8, 25
	queue := newTestQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consumed int32
	var consumers sync.WaitGroup
	for i := 0; i < producers; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for atomic.LoadInt32(&consumed) < producers*perProducer {
				consumeCtx, done := context.WithTimeout(ctx, 50*time.Millisecond)
				message, err := queue.Consume(consumeCtx)
				done()
				if err != nil {
					continue
				}
				if message.Ack() == nil {
					atomic.AddInt32(&consumed, 1)
				}
			}
		}()
	}

	var publishers sync.WaitGroup
	for i := 0; i < producers; i++ {
		publishers.Add(1)
		go func(producer int) {
			defer publishers.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &dispatch{ProcessID: fmt.Sprintf("p%d-%d", producer, j)}))
			}
		}(i)
	}
	publishers.Wait()
	consumers.Wait()

	require.NoError(t, ctx.Err(), "timed out draining queue")
	assert.EqualValues(t, producers*perProducer, atomic.LoadInt32(&consumed))
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Cancellation(t *testing.T) {
	queue := newTestQueue(1)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(cancelled, &dispatch{ProcessID: "p-1"}))
	assert.Equal(t, 0, queue.Size())

	waiting, done := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer done()
	_, err := queue.Consume(waiting)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &dispatch{ProcessID: "p-1"}))
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p-1", message.T().ProcessID)
}
