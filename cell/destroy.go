// File: cell/destroy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Destroy implements spec.md §4.1's failure-semantics requirement: "a cell
// destroyed while holding borrowed cores must yield them all before
// teardown." It also clears the allocator's owner[]/borrower[] back
// references for this cell's CPUs, closing the "cycle-prone pointer graph"
// Design Note from spec.md §9.

package cell

import (
	"context"

	"go.uber.org/multierr"
)

// Destroy tears the cell down: removes every registered worker (so any
// subsequent yield_cores call takes the synchronous return-to-owner path),
// yields every borrowed core back to its owner, yields every owned core it
// is still running on to the free pool, and releases ownership of every
// core in its habitat.
func (c *Cell) Destroy(ctx context.Context) error {
	var errs error

	c.mu.Lock()
	cpus := make([]int, 0, len(c.workers))
	for cpu := range c.workers {
		cpus = append(cpus, cpu)
	}
	c.mu.Unlock()
	for _, cpu := range cpus {
		c.RemoveWorker(cpu)
	}

	for cpu := 0; cpu < c.numCPU; cpu++ {
		if !c.borrowed.Test(cpu) {
			continue
		}
		c.YieldCores([]int{cpu}, true)
	}

	for cpu := 0; cpu < c.numCPU; cpu++ {
		if c.owned.Test(cpu) {
			c.alloc.Yield(c, cpu)
			c.alloc.SetOwner(nil, cpu)
		}
	}

	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
