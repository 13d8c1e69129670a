// File: cell/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker is the per-(cell, CPU) execution context. Its wake primitive is a
// binary semaphore (buffered channel, capacity 1): the out-of-scope sleep
// primitive spec.md §1 assumes hardware/OS collaborators supply, modeled
// here the way the teacher models its executor's parked goroutines
// (internal/concurrency/eventloop.go).

package cell

import (
	"context"
	"sync"
)

// Worker tracks one logical CPU's execution context within a Cell.
type Worker struct {
	cpu int

	mu    sync.Mutex
	state WorkerState
	wake  chan struct{}
}

func newWorker(cpu int) *Worker {
	return &Worker{cpu: cpu, wake: make(chan struct{}, 1), state: Idle}
}

// Wake is an idempotent semaphore-up: delivered to a worker that is not
// parked, it is a no-op (spec.md §4.2 failure semantics).
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Park blocks until woken or ctx is canceled. Real drivers (simulation
// package) call this from a dedicated goroutine per worker; a wake that
// arrived before Park is called makes it return immediately.
func (w *Worker) Park(ctx context.Context) error {
	select {
	case <-w.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports the worker's current state-machine position.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s WorkerState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
