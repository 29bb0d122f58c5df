// Package queue defines the contract for enqueuing and consuming
// sensor readings between the ingest sources and the persistence
// workers. The implementation is an in-memory bounded queue.
package queue

import (
	"context"
	"sync"

	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Reading is the payload type flowing through the queue.
type Reading = model.SensorReading

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a reading to the queue.
	// Returns false if the queue is full and the reading was not enqueued.
	Enqueue(ctx context.Context, r Reading) bool

	// Dequeue returns a channel that receives readings as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Reading

	// Len returns the current number of queued readings.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new
	// readings can be enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	readings chan Reading
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.readings = make(chan Reading, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue adds a reading to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Reading) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return false
	}

	select {
	case q.readings <- r:
		metrics.RecordQueueEnqueue()
		q.observeDepth()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return false
	}
}

// Dequeue returns a channel that receives readings as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Reading {
	out := make(chan Reading)
	go func() {
		defer close(out)
		for r := range q.readings {
			select {
			case out <- r:
				metrics.RecordQueueDequeue()
				q.observeDepth()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued readings.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.readings)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.readings)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observeDepth() {
	size := len(q.readings)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
