// File: simulation/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Driver wires a loaded topology into a live allocator/cell graph plus the
// worker goroutines, event stream, and heartbeat scheduler that simulate a
// running system without real hardware underneath it.

package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/momentics/hioload-ws/allocator"
	"github.com/momentics/hioload-ws/cell"
	"github.com/momentics/hioload-ws/config"
	"go.uber.org/zap"
)

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithLogger attaches a structured logger; defaults to zap.NewNop().
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Driver) { d.log = l }
}

// WithAffinity enables pinning each simulated worker goroutine to its CPU.
func WithAffinity(enabled bool) Option {
	return func(d *Driver) { d.pin = enabled }
}

// WithHeartbeat overrides the default heartbeat interval.
func WithHeartbeat(interval time.Duration) Option {
	return func(d *Driver) { d.heartbeat = interval }
}

// Driver owns one allocator, the cells carved from a Topology, their
// simulated per-CPU workers, an EventStream, and a heartbeat Scheduler.
type Driver struct {
	alloc  *allocator.Allocator
	cells  []*cell.Cell
	loops  []*WorkerLoop
	stream *EventStream
	sched  *Scheduler

	pin       bool
	heartbeat time.Duration
	log       *zap.SugaredLogger

	wg sync.WaitGroup
}

// New builds a Driver from topo: one Cell per habitat, one WorkerLoop per
// CPU the habitat owns.
func New(topo *config.Topology, opts ...Option) *Driver {
	d := &Driver{
		alloc:     allocator.New(topo.NumCPU),
		stream:    NewEventStream(16, 256),
		heartbeat: time.Second,
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, h := range topo.Habitats {
		c := cell.New(d.alloc, h.Prio, h.CPUs, topo.NumCPU, cell.WithID(h.CellID), cell.WithLogger(d.log))
		d.cells = append(d.cells, c)
		for _, cpu := range h.CPUs {
			d.loops = append(d.loops, NewWorkerLoop(c, cpu, d.stream, d.pin))
		}
	}
	d.sched = NewScheduler(d.heartbeat, d.reportHeartbeat)
	return d
}

// Allocator exposes the underlying allocator, e.g. for a syscall.Dispatcher
// sharing the same simulated hardware.
func (d *Driver) Allocator() *allocator.Allocator { return d.alloc }

// Cells returns every cell this driver carved from its topology.
func (d *Driver) Cells() []*cell.Cell { return d.cells }

// Run starts the event stream, every worker loop, and the heartbeat
// scheduler, then blocks until ctx is canceled.
func (d *Driver) Run(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.stream.Run()
	}()

	for _, l := range d.loops {
		l := l
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			l.Run(ctx)
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sched.Run()
	}()

	<-ctx.Done()
	d.sched.Stop()
	d.stream.Stop()
	d.wg.Wait()
}

func (d *Driver) reportHeartbeat() {
	for _, c := range d.cells {
		d.log.Infow("heartbeat",
			"cell", c.ID(),
			"owned", c.OwnedMask().Snapshot(),
			"current", c.CurrentMask().Snapshot(),
			"borrowed", c.BorrowedMask().Snapshot(),
		)
	}
}
