// File: cell/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// add_cores, yield_cores, yield_core, wake_core, remove_worker, update, per
// spec.md §4.2.

package cell

import "github.com/momentics/hioload-ws/cpuset"

// AddCores is called after a successful allocator.Alloc. For every bit set
// in mask, it publishes the current stealing limit and remainder (the
// number of cores just granted) into the worker's channel and wakes it.
// Bits with no registered worker are ignored.
func (c *Cell) AddCores(mask *cpuset.CPUMask) {
	remainder := uint32(mask.Count())
	for cpu := 0; cpu < c.numCPU; cpu++ {
		if !mask.Test(cpu) {
			continue
		}
		c.mu.Lock()
		w, ok := c.workers[cpu]
		c.mu.Unlock()
		if !ok {
			continue
		}
		if ch := c.channels.For(cpu); ch != nil {
			ch.SetLimit(uint32(c.StealingLimit()))
			ch.SetRemainder(remainder)
		}
		w.Wake()
		w.setState(Running)
	}
}

// YieldCores implements allocator.Claimant.YieldCores and spec.md §4.2's
// yield_cores(mask, release): for each cpu, if a worker is registered, try
// the 0->1 yield_flag transition (the interlock — an already-flagged CPU is
// skipped, not re-issued); otherwise this cell has no active worker there,
// so the core is returned to its owner synchronously and the owner's
// worker is woken. If release is true, the core is additionally given back
// to the free pool via the allocator's voluntary-yield path regardless of
// which branch ran; spec.md's failure semantics ("spurious loss of a
// reclaim... tolerated") cover the resulting race when a worker is still
// mid-flight to honoring its flag.
func (c *Cell) YieldCores(cpus []int, release bool) int {
	processed := 0
	for _, cpu := range cpus {
		c.mu.Lock()
		w, hasWorker := c.workers[cpu]
		c.mu.Unlock()

		if hasWorker {
			if ch := c.channels.For(cpu); ch != nil && ch.RequestYield() {
				c.coresToReclaim.Set(cpu)
				w.setState(YieldRequested)
				processed++
			}
		} else {
			c.alloc.ReturnCore(c, cpu)
			if owner := c.alloc.Owner(cpu); owner != nil {
				owner.WakeCore(cpu)
			}
			processed++
		}

		if release {
			c.alloc.Yield(c, cpu)
		}
	}
	return processed
}

// YieldCore is the worker-side terminal step after it observes and honors
// its yield flag. If cpu is currently borrowed by this cell, it is handed
// back to its owner via allocator.ReturnCore and the owner's worker is
// woken (spec.md §4.2, §8 scenario 4); allocator.ReturnCore already clears
// the borrower's current_mask and borrowed_mask bits in that case.
// Otherwise this clears current_mask[c] and borrowed_mask[c] itself.
// cores_to_reclaim[c] is always cleared. If clearFlag is true, also writes
// 0 to the channel's yield_flag.
func (c *Cell) YieldCore(cpu int, clearFlag bool) {
	if c.borrowed.Test(cpu) {
		c.alloc.ReturnCore(c, cpu)
		if owner := c.alloc.Owner(cpu); owner != nil {
			owner.WakeCore(cpu)
		}
	} else {
		c.current.Clear(cpu)
		c.borrowed.Clear(cpu)
	}
	c.coresToReclaim.Clear(cpu)

	c.mu.Lock()
	if w, ok := c.workers[cpu]; ok {
		w.setState(Idle)
	}
	c.mu.Unlock()

	if clearFlag {
		if ch := c.channels.For(cpu); ch != nil {
			ch.ClearYieldFlag()
		}
	}
}

// WakeCore implements allocator.Claimant.WakeCore and spec.md §4.2's
// wake_core(c): publish the stealing limit into the channel and call the
// worker's wake primitive.
func (c *Cell) WakeCore(cpu int) {
	if ch := c.channels.For(cpu); ch != nil {
		ch.SetLimit(uint32(c.StealingLimit()))
	}
	c.mu.Lock()
	w, ok := c.workers[cpu]
	c.mu.Unlock()
	if ok {
		w.Wake()
		w.setState(Running)
	}
}

// RemoveWorker destroys the worker's wake primitive; used at cell teardown.
func (c *Cell) RemoveWorker(cpu int) {
	c.mu.Lock()
	delete(c.workers, cpu)
	c.mu.Unlock()
}

// Update reassigns a habitat stripe: the CPUs in newOwned replace whatever
// this cell previously owned in [offset, offset+width), where width is the
// span covered by newOwned relative to offset. Ownership changes propagate
// into the allocator via SetOwner, which itself demotes a displaced
// previous owner to borrower status if it was still running there.
func (c *Cell) Update(newOwned []int, offset int) {
	width := 0
	for _, cpu := range newOwned {
		if w := cpu - offset + 1; w > width {
			width = w
		}
	}
	keep := make(map[int]bool, len(newOwned))
	for _, cpu := range newOwned {
		keep[cpu] = true
	}
	for cpu := offset; cpu < offset+width && cpu < c.numCPU; cpu++ {
		if c.owned.Test(cpu) && !keep[cpu] {
			if o := c.alloc.Owner(cpu); o != nil && o.ID() == c.id {
				c.alloc.SetOwner(nil, cpu)
			}
			c.owned.Clear(cpu)
		}
	}
	c.alloc.SetOwners(c, newOwned)
}
