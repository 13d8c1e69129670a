// File: simulation/event.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event stream reporting allocator/cell activity, adapted from the
// teacher's internal/concurrency/eventloop.go: the same ring-buffered,
// batch-draining, adaptive-backoff loop, now carrying allocation/yield/
// reclaim notifications instead of generic interface{} payloads.

package simulation

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-ws/internal/concurrency"
)

// Kind classifies an Event.
type Kind int

const (
	AllocEvent Kind = iota
	YieldEvent
	ReclaimEvent
)

func (k Kind) String() string {
	switch k {
	case AllocEvent:
		return "alloc"
	case YieldEvent:
		return "yield"
	case ReclaimEvent:
		return "reclaim"
	default:
		return "unknown"
	}
}

// Event reports one allocator/cell transition observed by a WorkerLoop.
type Event struct {
	Kind   Kind
	CellID string
	CPU    int
}

// EventHandler receives events drained from an EventStream.
type EventHandler interface {
	HandleEvent(ev Event)
}

// EventStream is a batch-draining, backoff-adaptive event loop over a
// bounded ring buffer of Events.
type EventStream struct {
	queue     *concurrency.RingBuffer[Event]
	handlers  atomic.Value // []EventHandler
	batchSize int
	stopCh    chan struct{}
	running   int32
	stopped   int32
	backoffNs int64
}

// NewEventStream constructs an EventStream with the given batch size and
// queue capacity (rounded up to the next power of two).
func NewEventStream(batchSize, queueSize int) *EventStream {
	if batchSize <= 0 {
		batchSize = 16
	}
	s := &EventStream{
		queue:     concurrency.NewRingBuffer[Event](nextPowerOfTwo(queueSize)),
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
		backoffNs: 1,
	}
	s.handlers.Store([]EventHandler{})
	return s
}

func nextPowerOfTwo(v int) uint64 {
	if v <= 1 {
		return 1
	}
	p := uint64(1)
	for p < uint64(v) {
		p <<= 1
	}
	return p
}

// Pending reports the number of queued, undrained events.
func (s *EventStream) Pending() int { return s.queue.Len() }

// RegisterHandler adds h to the handler set.
func (s *EventStream) RegisterHandler(h EventHandler) {
	for {
		old := s.handlers.Load().([]EventHandler)
		next := append(append([]EventHandler{}, old...), h)
		if s.handlers.CompareAndSwap(old, next) {
			return
		}
	}
}

// Post enqueues ev; returns false if the stream is full.
func (s *EventStream) Post(ev Event) bool {
	return s.queue.Enqueue(ev)
}

// Run drains and dispatches events in batches until Stop is called.
func (s *EventStream) Run() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&s.stopped, 1)
	batch := make([]Event, s.batchSize)
	for {
		select {
		case <-s.stopCh:
			return
		default:
			if n := s.drain(batch); n == 0 {
				s.backoff()
			} else {
				atomic.StoreInt64(&s.backoffNs, 1)
			}
		}
	}
}

func (s *EventStream) drain(batch []Event) int {
	handlers := s.handlers.Load().([]EventHandler)
	count := 0
	for i := 0; i < s.batchSize; i++ {
		ev, ok := s.queue.Dequeue()
		if !ok {
			break
		}
		batch[i] = ev
		count++
	}
	for i := 0; i < count; i++ {
		for _, h := range handlers {
			h.HandleEvent(batch[i])
		}
	}
	return count
}

func (s *EventStream) backoff() {
	select {
	case <-s.stopCh:
		return
	default:
	}
	ns := atomic.LoadInt64(&s.backoffNs)
	if ns < 1000 {
		time.Sleep(time.Microsecond)
	} else {
		runtime.Gosched()
	}
	next := ns * 2
	if next > 1_000_000 {
		next = 1_000_000
	}
	atomic.StoreInt64(&s.backoffNs, next)
}

// Stop halts Run and blocks until it has returned.
func (s *EventStream) Stop() {
	if atomic.LoadInt32(&s.running) == 1 {
		close(s.stopCh)
		for atomic.LoadInt32(&s.stopped) == 0 {
			time.Sleep(time.Microsecond)
		}
	}
}
