// File: allocator/alloc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Alloc implements spec.md §4.1: own-first, reclaim-own-but-lent (async),
// borrow-idle (bounded retry), in that priority order. Partial success is
// the norm: Alloc never blocks and never returns an error for scarcity.

package allocator

import "github.com/momentics/hioload-ws/cpuset"

// Alloc attempts to acquire up to n CPUs for claimant. selfCPU is the
// logical CPU the requesting worker currently executes on (spec.md: "the
// self-CPU is never reclaimed from its own worker"); pass -1 if the
// claimant call does not originate from a running worker (e.g. a control
// path), which disables the self-CPU exclusion.
//
// Returns the bitmask actually granted; may be anywhere from 0 to n bits.
func (a *Allocator) Alloc(claimant Claimant, selfCPU, n int) *cpuset.CPUMask {
	granted := cpuset.NewCPUMask(a.numCPU)
	if n <= 0 {
		return granted
	}

	// Step 2 first: scan for owned-but-lent cores and raise reclaim flags.
	// This is async and never grants a core synchronously; it only makes
	// cores available for a *later* Alloc call once the borrower honors the
	// flag (allocator.ReturnCore).
	a.reclaimOwnButLent(claimant, selfCPU)

	count := 0

	// Cores the claimant already owns and currently holds count toward this
	// call's granted total without touching free_map: a cell re-asserting an
	// allocation over a habitat it is already running on is not a new grant,
	// but spec.md §8's worked scenarios report it as part of granted_mask.
	owned, current := claimant.OwnedMask(), claimant.CurrentMask()
	for cpu := 0; cpu < a.numCPU && count < n; cpu++ {
		if owned.Test(cpu) && current.Test(cpu) {
			granted.Set(cpu)
			count++
		}
	}

	for count < n {
		if cpu := a.tryOwnFirst(claimant); cpu >= 0 {
			granted.Set(cpu)
			count++
			continue
		}
		if cpu := claimant.TakeUncountedReturn(); cpu >= 0 {
			if !granted.Set(cpu) {
				count++
			}
			continue
		}
		if cpu := a.tryBorrowIdle(claimant); cpu >= 0 {
			granted.Set(cpu)
			count++
			continue
		}
		break
	}

	if count > 0 {
		claimant.SetStealingLimit(stealingLimit(count))
	} else {
		claimant.SetStealingLimit(0)
	}
	a.log.Debugw("alloc", "claimant", claimant.ID(), "requested", n, "granted", count)
	return granted
}

// MaxWorkers bounds the stealing-limit derivation (spec.md §3: "derived
// after each allocation as floor(max_workers / W)"). It is a package-level
// tunable rather than a per-Allocator field because it reflects a
// system-wide worker budget, not per-CPU state.
var MaxWorkers = 1024

func stealingLimit(granted int) int {
	if granted <= 0 {
		return 0
	}
	return MaxWorkers / granted
}

// tryOwnFirst claims one bit from free_map ∩ claimant.OwnedMask(), marking
// ownership (if not already recorded), current_mask, and clearing idle_mask.
func (a *Allocator) tryOwnFirst(claimant Claimant) int {
	cpu := a.freeMap.AllocMasked(claimant.OwnedMask())
	if cpu < 0 {
		return -1
	}
	s := &a.owner[cpu]
	s.mu.Lock()
	if s.cell == nil {
		s.cell = claimant
	}
	s.mu.Unlock()
	claimant.CurrentMask().Set(cpu)
	a.idleMask.Clear(cpu)
	return cpu
}

// reclaimOwnButLent scans claimant's habitat for cores it owns but that are
// currently lent to another cell, and raises (or re-raises) the reclaim
// protocol on each one not already pending. The self CPU is never targeted.
func (a *Allocator) reclaimOwnButLent(claimant Claimant, selfCPU int) {
	owned := claimant.OwnedMask()
	for cpu := 0; cpu < a.numCPU; cpu++ {
		if cpu == selfCPU || !owned.Test(cpu) {
			continue
		}
		b := a.Borrower(cpu)
		if b == nil || claimantEqual(b, claimant) {
			continue
		}
		if claimant.RequestedMask().Test(cpu) {
			continue // already pending; the flag is the interlock (P5)
		}
		claimant.RequestedMask().Set(cpu)
		b.YieldCores([]int{cpu}, false)
		a.log.Debugw("reclaim requested", "cpu", cpu, "owner", claimant.ID(), "borrower", b.ID())
	}
}

// tryBorrowIdle attempts, up to a[idleBorrowAttempts] times, to claim a bit
// from free_map ∩ idle_mask on behalf of claimant. A core whose previous
// borrower still has a pending (unhonored) yield flag is returned to its
// owner instead of being re-lent, per spec.md §9's resolution of the
// commented-out skip branch: "implement the return-to-owner path; treat
// flag-set-at-borrow as a contract violation if ever observed."
func (a *Allocator) tryBorrowIdle(claimant Claimant) int {
	for attempt := 0; attempt < a.idleBorrowAttempts; attempt++ {
		cpu := a.freeMap.AllocMasked(a.idleMask)
		if cpu < 0 {
			return -1
		}
		a.idleMask.Clear(cpu)

		owner := a.Owner(cpu)
		if claimantEqual(owner, claimant) {
			// Already ours; treat like an own-first grant.
			claimant.CurrentMask().Set(cpu)
			return cpu
		}

		bs := &a.borrower[cpu]
		bs.mu.Lock()
		prev := bs.cell
		stale := prev != nil
		if stale {
			if ch := prev.Channel(cpu); ch != nil {
				stale = ch.YieldFlag()
			}
		}
		if stale {
			bs.cell = nil
			bs.mu.Unlock()
			a.ReturnCore(prev, cpu)
			continue // retry within the attempt budget
		}
		bs.cell = claimant
		bs.mu.Unlock()

		claimant.BorrowedMask().Set(cpu)
		claimant.CurrentMask().Set(cpu)
		return cpu
	}
	return -1
}
