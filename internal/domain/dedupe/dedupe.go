// Package dedupe defines the interface for idempotency tracking.
//
// The sensor publishers send over MQTT at QoS 1, so at-least-once
// delivery is the norm and the same reading can arrive twice. Reading
// IDs are deviceID@timestamp; because the stream is monotone in time,
// eviction is FIFO: the oldest recorded IDs are the ones that can no
// longer recur.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Default bound on remembered IDs.
const defaultMaxSize = 100000

// Deduper records seen reading IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set, allowing a retry. Use it
	// when a reading was marked seen but failed to be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of IDs kept in memory. Zero or negative
// means unbounded.
func WithMaxSize(size int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = size
	}
}

// inMemoryDeduper implements Deduper with a map plus a FIFO ring of the
// insertion order for bounded eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // ring of insertion order, fixed at maxSize slots
	head    int      // next slot to overwrite
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, d.maxSize)
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if evicted := d.order[d.head]; evicted != "" {
			if _, exists := d.seen[evicted]; exists {
				delete(d.seen, evicted)
				d.size.Add(-1)
			}
		}
		d.order[d.head] = id
		d.head = (d.head + 1) % d.maxSize
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen set. The ring slot is left as is;
// a stale slot entry is ignored at eviction time.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// Size returns the current number of remembered IDs.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
