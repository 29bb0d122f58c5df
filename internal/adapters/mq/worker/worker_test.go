package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	worker "github.com/pulsehq/pulse/internal/adapters/mq/worker"
	model "github.com/pulsehq/pulse/internal/domain/model"
	logging "github.com/pulsehq/pulse/pkg/logger"
)

// Mock implementations for testing.
type mockQueue struct {
	readingChan chan worker.Reading
	closeOnce   sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		readingChan: make(chan worker.Reading, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan worker.Reading {
	return mq.readingChan
}

func (mq *mockQueue) Close() error {
	mq.closeOnce.Do(func() { close(mq.readingChan) })
	return nil
}

func (mq *mockQueue) addReading(r worker.Reading) {
	mq.readingChan <- r
}

type mockSink struct {
	mu         sync.RWMutex
	inserted   map[string]int
	duplicates map[string]bool
	errors     map[string]error
}

func newMockSink() *mockSink {
	return &mockSink{
		inserted:   make(map[string]int),
		duplicates: make(map[string]bool),
		errors:     make(map[string]error),
	}
}

func (ms *mockSink) InsertReading(ctx context.Context, r worker.Reading) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if err, exists := ms.errors[r.ID]; exists {
		return false, err
	}
	if ms.duplicates[r.ID] {
		return false, nil
	}
	ms.inserted[r.ID]++
	return true, nil
}

func (ms *mockSink) setDuplicate(id string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.duplicates[id] = true
}

func (ms *mockSink) setError(id string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[id] = err
}

func (ms *mockSink) insertCount(id string) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.inserted[id]
}

type mockObserver struct {
	mu     sync.Mutex
	stored []string
}

func (mo *mockObserver) ReadingStored(ctx context.Context, r worker.Reading) {
	mo.mu.Lock()
	defer mo.mu.Unlock()
	mo.stored = append(mo.stored, r.ID)
}

func (mo *mockObserver) storedIDs() []string {
	mo.mu.Lock()
	defer mo.mu.Unlock()
	out := make([]string, len(mo.stored))
	copy(out, mo.stored)
	return out
}

func testReading(id string) model.SensorReading {
	return model.SensorReading{ID: id, DeviceID: "pi-01", VenueID: "venue-001", Timestamp: time.Now()}
}

func TestIngestWorker(t *testing.T) {
	convey.Convey("Given a new IngestWorker", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		sink := newMockSink()
		observer := &mockObserver{}

		convey.Convey("When creating a worker with options", func() {
			w := worker.NewIngestWorker(mq, sink,
				worker.WithName("test-worker"),
				worker.WithObserver(observer),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewIngestWorker(mq, sink, worker.WithObserver(observer))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And a reading arrives", func() {
				mq.addReading(testReading("r-1"))
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it is persisted and the observer notified", func() {
					convey.So(sink.insertCount("r-1"), convey.ShouldEqual, 1)
					convey.So(observer.storedIDs(), convey.ShouldContain, "r-1")
				})
			})

			convey.Convey("And the store already has the reading", func() {
				sink.setDuplicate("r-dup")
				mq.addReading(testReading("r-dup"))
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the observer is not notified", func() {
					convey.So(observer.storedIDs(), convey.ShouldNotContain, "r-dup")
				})
			})

			convey.Convey("And the insert fails", func() {
				sink.setError("r-bad", errors.New("disk full"))
				mq.addReading(testReading("r-bad"))
				mq.addReading(testReading("r-after"))
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the worker keeps going", func() {
					convey.So(sink.insertCount("r-after"), convey.ShouldEqual, 1)
					convey.So(observer.storedIDs(), convey.ShouldNotContain, "r-bad")
				})
			})
		})

		convey.Convey("When shutting down a worker", func() {
			w := worker.NewIngestWorker(mq, sink)
			ctx := context.Background()
			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("Then shutdown returns once the loop exits", func() {
				shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a worker pool over a shared queue", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		sink := newMockSink()
		observer := &mockObserver{}
		pool := worker.NewPool(4, mq, sink, observer)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		time.Sleep(10 * time.Millisecond)

		convey.Convey("When readings flow through", func() {
			for i := 0; i < 8; i++ {
				mq.addReading(testReading("pool-r-" + string(rune('a'+i))))
			}
			time.Sleep(100 * time.Millisecond)

			convey.Convey("Then every reading is persisted exactly once", func() {
				for i := 0; i < 8; i++ {
					convey.So(sink.insertCount("pool-r-"+string(rune('a'+i))), convey.ShouldEqual, 1)
				}
			})
		})

		convey.Convey("When the pool shuts down", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			convey.Convey("Then it closes the queue and drains the workers", func() {
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}
