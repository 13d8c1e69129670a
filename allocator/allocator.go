// File: allocator/allocator.go
// Package allocator implements the core CPU-core allocator: global ownership,
// current-usage, and borrowing state for every logical CPU, consistent under
// parallel allocation and reclamation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// There is no global lock. free_map and idle_mask are atomic bitmasks
// (cpuset.CPUMask); owner[]/borrower[] are arrays of cache-line-padded slots,
// each guarded by its own mutex, matching the teacher's cache-line-separated
// RingBuffer head/tail fields (internal/concurrency/ring.go).

package allocator

import (
	"sync"

	"github.com/momentics/hioload-ws/channel"
	"github.com/momentics/hioload-ws/cpuset"
	"go.uber.org/zap"
)

// IdleBorrowAttempts bounds the retry budget for the idle-mask borrow step
// (spec.md §9 Open Question: "a tunable cap on livelock avoidance"). The
// original source's three-attempt retry has no documented justification;
// implementations may use any small value >= 1.
const IdleBorrowAttempts = 3

// Claimant is the allocator's view of a Cell: the minimal surface it needs
// to mutate a cell's masks and invoke its yield protocol, without importing
// the cell package (which in turn depends on allocator). This breaks the
// cycle described in spec.md §9 "cycle-prone pointer graph".
type Claimant interface {
	// ID uniquely identifies the cell, used as the comparison key for
	// "borrower[c] != claimant" checks and for structured logging.
	ID() string
	// Prio returns the cell's priority class (lower numeric = higher prio).
	Prio() int

	OwnedMask() *cpuset.CPUMask
	CurrentMask() *cpuset.CPUMask
	BorrowedMask() *cpuset.CPUMask
	RequestedMask() *cpuset.CPUMask

	// SetStealingLimit publishes the derived stealing_limit after an
	// allocation, per spec.md §4.1 "After the loop...".
	SetStealingLimit(n int)

	// WakeCore implements spec.md §4.2's wake_core(c): publish the stealing
	// limit into the channel and wake the per-CPU worker. Invoked by the
	// allocator/another cell on the owner when a borrowed core is returned.
	WakeCore(cpu int)

	// Channel returns the worker-channel record for cpu, or nil if this
	// cell has no worker registered there.
	Channel(cpu int) *channel.WorkerChannel

	// YieldCores implements cell.Cell.YieldCores: raises yield flags (or
	// synchronously returns cores with no active worker), optionally
	// releasing them to the free pool. Returns the count processed.
	YieldCores(cpus []int, release bool) int

	// NoteReturned records that cpu was just handed back to this cell via
	// ReturnCore, for later consumption by TakeUncountedReturn.
	NoteReturned(cpu int)

	// TakeUncountedReturn pops and returns one previously-returned CPU id
	// not yet counted toward any Alloc call's granted total, or -1 if none
	// is pending. Implements spec.md §4.1's "the outstanding ones will
	// materialize on later allocations".
	TakeUncountedReturn() int
}

// cellSlot is a cache-line-padded, individually-locked reference to the cell
// that owns or borrows a single CPU. Padding mirrors
// internal/concurrency/ring.go's "_ [64]byte" separators.
type cellSlot struct {
	mu   sync.Mutex
	cell Claimant
	_    [40]byte
}

// Allocator is the global per-CPU allocator state described in spec.md §3.
type Allocator struct {
	numCPU int

	freeMap  *cpuset.BitAlloc // set bit = CPU not in any cell's current_mask
	idleMask *cpuset.CPUMask // set bit = worker on that CPU recently parked

	owner    []cellSlot
	borrower []cellSlot

	dumpLock sync.Mutex

	idleBorrowAttempts int
	log                *zap.SugaredLogger
}

// Option configures an Allocator at construction time.
type Option func(*Allocator)

// WithIdleBorrowAttempts overrides IdleBorrowAttempts for this allocator
// instance (spec.md §9 Open Question).
func WithIdleBorrowAttempts(n int) Option {
	return func(a *Allocator) {
		if n >= 1 {
			a.idleBorrowAttempts = n
		}
	}
}

// WithLogger attaches a structured logger; defaults to zap.NewNop().
func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *Allocator) { a.log = l }
}

// New constructs an Allocator for numCPU logical CPUs, all initially free
// and not idle.
func New(numCPU int, opts ...Option) *Allocator {
	if numCPU <= 0 {
		panic("allocator: numCPU must be positive")
	}
	a := &Allocator{
		numCPU:             numCPU,
		freeMap:            cpuset.NewBitAlloc(numCPU),
		idleMask:           cpuset.NewCPUMask(numCPU),
		owner:              make([]cellSlot, numCPU),
		borrower:           make([]cellSlot, numCPU),
		idleBorrowAttempts: IdleBorrowAttempts,
		log:                zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NumCPU returns the number of logical CPUs this allocator manages.
func (a *Allocator) NumCPU() int { return a.numCPU }

// Owner returns the cell owning cpu, or nil.
func (a *Allocator) Owner(cpu int) Claimant {
	s := &a.owner[cpu]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cell
}

// Borrower returns the cell currently borrowing cpu, or nil.
func (a *Allocator) Borrower(cpu int) Claimant {
	s := &a.borrower[cpu]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cell
}

func claimantEqual(a, b Claimant) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}
