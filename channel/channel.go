// File: channel/channel.go
// Package channel implements the worker-channel protocol: the sole
// user-visible shared-memory interface between a worker and its kernel-side
// scheduler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// yield_flag is the only control field; limit/remainder and the delta_*
// cycle counters are hints and telemetry. The kernel sets yield_flag 0->1
// only via compare-and-swap (RequestYield); the worker clears it 1->0 inside
// its yield syscall (ClearYieldFlag).

package channel

import "sync/atomic"

// WorkerChannel is the per-(cell, CPU) shared record: three control/hint
// fields (yield_flag, limit, remainder; logically 16-bit, held in 32-bit
// atomics) plus six 64-bit cycle-counter deltas. With alignment padding the
// struct occupies 64 bytes.
type WorkerChannel struct {
	yieldFlag atomic.Uint32 // logically 16-bit; widened for atomic ops.
	limit     atomic.Uint32
	remainder atomic.Uint32

	DeltaAlloc    atomic.Uint64
	DeltaActivate atomic.Uint64
	DeltaSetFlag  atomic.Uint64
	DeltaBlock    atomic.Uint64
	DeltaEnter    atomic.Uint64
	DeltaReturn   atomic.Uint64
}

// RequestYield attempts the 0->1 transition of yield_flag. Returns true if
// this call performed the transition; false if the flag was already set
// (the interlock — a pending request is not re-issued).
func (c *WorkerChannel) RequestYield() bool {
	return c.yieldFlag.CompareAndSwap(0, 1)
}

// YieldFlag reports the current value of the control field.
func (c *WorkerChannel) YieldFlag() bool {
	return c.yieldFlag.Load() != 0
}

// ClearYieldFlag writes 0 to yield_flag. Called by the worker inside its
// yield syscall, or by the owner when a core is returned.
func (c *WorkerChannel) ClearYieldFlag() {
	c.yieldFlag.Store(0)
}

// SetLimit publishes the advisory stealing-limit hint.
func (c *WorkerChannel) SetLimit(v uint32) { c.limit.Store(v) }

// Limit reads the advisory stealing-limit hint.
func (c *WorkerChannel) Limit() uint32 { return c.limit.Load() }

// SetRemainder publishes how many cores were granted in the most recent
// allocation.
func (c *WorkerChannel) SetRemainder(v uint32) { c.remainder.Store(v) }

// Remainder reads the most recent allocation's granted count.
func (c *WorkerChannel) Remainder() uint32 { return c.remainder.Load() }

// Snapshot is a point-in-time, non-atomic-as-a-whole copy for diagnostics.
type Snapshot struct {
	YieldFlag     bool
	Limit         uint32
	Remainder     uint32
	DeltaAlloc    uint64
	DeltaActivate uint64
	DeltaSetFlag  uint64
	DeltaBlock    uint64
	DeltaEnter    uint64
	DeltaReturn   uint64
}

// Snapshot reads every field without any cross-field consistency guarantee,
// matching §6's "opaque to callers beyond telemetry" intent.
func (c *WorkerChannel) Snapshot() Snapshot {
	return Snapshot{
		YieldFlag:     c.YieldFlag(),
		Limit:         c.Limit(),
		Remainder:     c.Remainder(),
		DeltaAlloc:    c.DeltaAlloc.Load(),
		DeltaActivate: c.DeltaActivate.Load(),
		DeltaSetFlag:  c.DeltaSetFlag.Load(),
		DeltaBlock:    c.DeltaBlock.Load(),
		DeltaEnter:    c.DeltaEnter.Load(),
		DeltaReturn:   c.DeltaReturn.Load(),
	}
}
