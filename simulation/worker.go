// File: simulation/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkerLoop simulates one cell's per-CPU execution context. Adapted from
// the teacher's internal/concurrency/executor.go worker.run loop (stopCh
// select, optional affinity pin), polling a channel's yield flag in place
// of a task queue: a real worker observes its own yield_flag cooperatively
// rather than being pushed a notification, so the loop ticks instead of
// blocking on the flag directly.

package simulation

import (
	"context"
	"time"

	"github.com/momentics/hioload-ws/affinity"
	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/cell"
)

// pollInterval is how often a running worker checks its own yield flag.
const pollInterval = time.Millisecond

// WorkerLoop drives one simulated CPU worker for a cell until its context
// is canceled.
type WorkerLoop struct {
	cpu      int
	cell     *cell.Cell
	worker   *cell.Worker
	stream   *EventStream
	pin      bool
	affinity api.Affinity
}

// NewWorkerLoop registers a worker for cpu within c and returns a loop that
// will publish activity to stream. If pin is true, Run pins its goroutine
// to cpu via an affinity.Provider before parking.
func NewWorkerLoop(c *cell.Cell, cpu int, stream *EventStream, pin bool) *WorkerLoop {
	return &WorkerLoop{
		cpu:      cpu,
		cell:     c,
		worker:   c.RegisterWorker(cpu),
		stream:   stream,
		pin:      pin,
		affinity: affinity.NewProvider(),
	}
}

// Worker returns the underlying cell.Worker, for tests and telemetry.
func (l *WorkerLoop) Worker() *cell.Worker { return l.worker }

// Run blocks until ctx is done. While idle it parks on the worker's wake
// primitive; once woken (cell.AddCores/WakeCore) it polls its channel's
// yield flag and honors a reclaim by calling Cell.YieldCore, then returns
// to parking.
func (l *WorkerLoop) Run(ctx context.Context) {
	if l.pin {
		_ = l.affinity.Pin(l.cpu, 0)
	}
	ch := l.cell.Channel(l.cpu)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if l.worker.State() == cell.Idle {
			if err := l.worker.Park(ctx); err != nil {
				return
			}
			l.stream.Post(Event{Kind: AllocEvent, CellID: l.cell.ID(), CPU: l.cpu})
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ch != nil && ch.YieldFlag() {
				l.cell.YieldCore(l.cpu, true)
				l.stream.Post(Event{Kind: ReclaimEvent, CellID: l.cell.ID(), CPU: l.cpu})
			}
		}
	}
}
