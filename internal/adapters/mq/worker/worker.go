// Package worker defines the workers that drain the reading queue into
// the reading store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/pkg/logger"
	"github.com/pulsehq/pulse/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Reading is what workers read off the queue.
type Reading = model.SensorReading

// Sink persists readings coming off the queue.
type Sink interface {
	// InsertReading stores a reading idempotently.
	// Returns false when the store already had it.
	InsertReading(ctx context.Context, r Reading) (bool, error)
}

// Observer is notified after a reading is persisted. Implementations
// use it to keep live state (counters, latest snapshot) warm.
type Observer interface {
	ReadingStored(ctx context.Context, r Reading)
}

// Queue defines how workers receive readings.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Reading
}

// Worker processes readings from the queue until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// IngestWorker implements Worker for persisting readings.
type IngestWorker struct {
	queue    Queue
	sink     Sink
	observer Observer
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewIngestWorker creates a new worker with configuration options.
func NewIngestWorker(queue Queue, sink Sink, opts ...Option) *IngestWorker {
	w := &IngestWorker{
		queue:    queue,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *IngestWorker) Run(ctx context.Context) {
	defer close(w.done)

	readings := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-readings:
			if !ok {
				return
			}
			if err := w.processReading(ctx, r); err != nil {
				w.logger.Error(ctx, "error processing reading", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *IngestWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processReading persists a single reading and notifies the observer.
func (w *IngestWorker) processReading(ctx context.Context, r Reading) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	stored, err := w.sink.InsertReading(ctx, r)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "reading insert failed",
			logger.String("readingID", r.ID),
			logger.Error(err),
		)
		return fmt.Errorf("insert reading %s: %w", r.ID, err)
	}
	if !stored {
		// The store already had it; QoS 1 redelivery that slipped past
		// the in-memory dedupe (e.g. after a restart).
		metrics.RecordReadingDuplicate()
		return nil
	}
	if w.observer != nil {
		w.observer.ReadingStored(ctx, r)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*IngestWorker

	logger logger.Logger
}

// NewPool creates a worker pool draining queue into sink.
func NewPool(workerCount int, queue Queue, sink Sink, observer Observer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*IngestWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewIngestWorker(
			queue,
			sink,
			WithName("worker-"+strconv.Itoa(i)),
			WithObserver(observer),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown gracefully shuts down the entire pool, closing the queue
// first so no new readings arrive.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := any(p.workers[0].queue).(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
