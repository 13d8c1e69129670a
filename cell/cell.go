// File: cell/cell.go
// Package cell implements the per-principal scheduling state described in
// spec.md §4.2: habitat, current-usage and borrowed masks, per-CPU worker
// handles, and the stealing-limit hint. Cell implements allocator.Claimant,
// letting the allocator mutate it without this package importing anything
// from allocator beyond that interface's inverse direction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cell

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/momentics/hioload-ws/allocator"
	"github.com/momentics/hioload-ws/channel"
	"github.com/momentics/hioload-ws/cpuset"
	"go.uber.org/zap"
)

// Cell is a resource principal: a protection domain with at most one worker
// per logical CPU, a habitat it owns, and borrowing relationships with the
// rest of the system mediated entirely through the allocator.
type Cell struct {
	id   string
	prio int

	numCPU int
	alloc  *allocator.Allocator

	owned          *cpuset.CPUMask
	current        *cpuset.CPUMask
	borrowed       *cpuset.CPUMask
	requested      *cpuset.CPUMask
	coresToReclaim *cpuset.CPUMask

	channels channel.ChannelPage

	mu      sync.Mutex
	workers map[int]*Worker

	stealingLimit atomic.Int32
	returns       *returnQueue

	log *zap.SugaredLogger
}

// Option configures a Cell at construction time.
type Option func(*Cell)

// WithLogger attaches a structured logger; defaults to zap.NewNop().
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Cell) { c.log = l }
}

// WithID overrides the generated uuid, for deterministic tests.
func WithID(id string) Option {
	return func(c *Cell) { c.id = id }
}

// New creates a Cell bound to the given habitat (owned CPU ids) within an
// allocator managing numCPU logical CPUs, and records ownership via
// SetOwners. Channels are allocated for the full [0, numCPU) range so any
// CPU id is addressable.
func New(alloc *allocator.Allocator, prio int, habitat []int, numCPU int, opts ...Option) *Cell {
	c := &Cell{
		id:             uuid.NewString(),
		prio:           prio,
		numCPU:         numCPU,
		alloc:          alloc,
		owned:          cpuset.NewCPUMask(numCPU),
		current:        cpuset.NewCPUMask(numCPU),
		borrowed:       cpuset.NewCPUMask(numCPU),
		requested:      cpuset.NewCPUMask(numCPU),
		coresToReclaim: cpuset.NewCPUMask(numCPU),
		channels:       channel.NewChannelPage(numCPU),
		workers:        make(map[int]*Worker),
		returns:        newReturnQueue(),
		log:            zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	alloc.SetOwners(c, habitat)
	return c
}

// --- allocator.Claimant ---

func (c *Cell) ID() string                          { return c.id }
func (c *Cell) Prio() int                            { return c.prio }
func (c *Cell) OwnedMask() *cpuset.CPUMask           { return c.owned }
func (c *Cell) CurrentMask() *cpuset.CPUMask         { return c.current }
func (c *Cell) BorrowedMask() *cpuset.CPUMask        { return c.borrowed }
func (c *Cell) RequestedMask() *cpuset.CPUMask       { return c.requested }

func (c *Cell) SetStealingLimit(n int) {
	c.stealingLimit.Store(int32(n))
}

func (c *Cell) StealingLimit() int {
	return int(c.stealingLimit.Load())
}

func (c *Cell) Channel(cpu int) *channel.WorkerChannel {
	return c.channels.For(cpu)
}

func (c *Cell) NoteReturned(cpu int) {
	c.returns.push(cpu)
}

func (c *Cell) TakeUncountedReturn() int {
	return c.returns.pop()
}

var _ allocator.Claimant = (*Cell)(nil)

// RegisterWorker adds a worker handle for cpu, defaulting to Idle. A cell
// has at most one worker per CPU (spec.md §3); re-registering replaces it.
func (c *Cell) RegisterWorker(cpu int) *Worker {
	w := newWorker(cpu)
	c.mu.Lock()
	c.workers[cpu] = w
	c.mu.Unlock()
	return w
}

// Worker returns the registered worker for cpu, or nil.
func (c *Cell) Worker(cpu int) *Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers[cpu]
}
