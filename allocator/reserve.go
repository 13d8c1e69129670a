// File: allocator/reserve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reserve, Yield, ReturnCore, SetOwner/SetOwners, InitHabitat and
// ValidAllocation, per spec.md §4.1.

package allocator

// Reserve insists that CPU c be part of reservant.CurrentMask() immediately.
// If owner[c] == reservant and a borrower currently holds c, a synchronous
// yield request is raised (the yield flag is set; Reserve itself does not
// wait for it to be honored). The bit is then marked in free_map and in
// reservant's current_mask. Fails if owner[c] != reservant.
func (a *Allocator) Reserve(reservant Claimant, cpu int) bool {
	if !claimantEqual(a.Owner(cpu), reservant) {
		return false
	}
	if b := a.Borrower(cpu); b != nil {
		b.YieldCores([]int{cpu}, false)
	}
	a.freeMap.TryClaim(cpu) // idempotent: may already be claimed (borrower running)
	a.idleMask.Clear(cpu)
	reservant.CurrentMask().Set(cpu)
	return true
}

// Yield is a worker's voluntary release of cpu. It does not block and does
// not wake anyone. Only effective if yielder is still considered running on
// cpu (i.e. currently has the bit set in its current_mask); otherwise this
// is a no-op, since yielder is not actually occupying the CPU anymore.
//
// free_map's bit is set back to "available" here, consistent with invariant
// P3 (free iff no cell has c in current_mask) and with the worked example in
// spec.md §8 scenario 3, where a yielded-but-still-owned core must become
// borrowable by another cell via the idle path.
func (a *Allocator) Yield(yielder Claimant, cpu int) {
	if !yielder.CurrentMask().Test(cpu) {
		return
	}
	a.idleMask.Set(cpu)
	a.freeMap.Release(cpu)
	yielder.CurrentMask().Clear(cpu)
}

// ReturnCore is invoked when a borrower honors a reclaim (or is found
// stale-flagged during an idle-borrow probe). It clears the borrower's
// current/borrowed bits, clears the global borrower[c] slot, hands the core
// directly to its owner's current_mask (bypassing free_map, since the core
// never stops being "used"), and clears the owner's requested_mask bit.
//
// The caller is responsible for waking the owner's worker as a separate
// step (spec.md §4.1).
func (a *Allocator) ReturnCore(borrower Claimant, cpu int) {
	bs := &a.borrower[cpu]
	bs.mu.Lock()
	if claimantEqual(bs.cell, borrower) {
		bs.cell = nil
	}
	bs.mu.Unlock()

	if borrower != nil {
		borrower.CurrentMask().Clear(cpu)
		borrower.BorrowedMask().Clear(cpu)
	}

	owner := a.Owner(cpu)
	if owner != nil {
		owner.CurrentMask().Set(cpu)
		owner.RequestedMask().Clear(cpu)
		owner.NoteReturned(cpu)
	}
}

// SetOwner records owner[c] := cell during habitat configuration. If c was
// previously owned by a different cell, that cell's ownership bit is
// cleared from its owned_mask and, if it was still running there, demoted
// to borrower status so bookkeeping stays consistent (invariant 3).
func (a *Allocator) SetOwner(cell Claimant, cpu int) {
	s := &a.owner[cpu]
	s.mu.Lock()
	previous := s.cell
	s.cell = cell
	s.mu.Unlock()

	if previous != nil && !claimantEqual(previous, cell) {
		previous.OwnedMask().Clear(cpu)
		if previous.CurrentMask().Test(cpu) {
			bs := &a.borrower[cpu]
			bs.mu.Lock()
			bs.cell = previous
			bs.mu.Unlock()
			previous.BorrowedMask().Set(cpu)
		}
	}
	if cell != nil {
		cell.OwnedMask().Set(cpu)
	}
}

// SetOwners applies SetOwner across every bit set in mask.
func (a *Allocator) SetOwners(cell Claimant, mask []int) {
	for _, cpu := range mask {
		a.SetOwner(cell, cpu)
	}
}

// InitHabitat reserves [0, offset) ∪ [offset+size, N) in free_map so those
// CPUs can never be allocated to any cell. Used at boot to carve the global
// CPU pool handed to Hoitaja-equivalent configuration (spec.md §4.1).
func (a *Allocator) InitHabitat(offset, size int) {
	for cpu := 0; cpu < offset; cpu++ {
		a.freeMap.Reserve(cpu)
	}
	for cpu := offset + size; cpu < a.numCPU; cpu++ {
		a.freeMap.Reserve(cpu)
	}
}

// ValidAllocation is the debug invariant checker: for every cell's
// current_mask, no CPU may be claimed by two cells (P1). cells is the
// caller-supplied registry of all live cells (the allocator itself keeps no
// such list — see DESIGN.md).
func (a *Allocator) ValidAllocation(cells []Claimant) bool {
	a.dumpLock.Lock()
	defer a.dumpLock.Unlock()

	seen := make(map[int]string, a.numCPU)
	for _, c := range cells {
		cm := c.CurrentMask()
		for cpu := 0; cpu < a.numCPU; cpu++ {
			if !cm.Test(cpu) {
				continue
			}
			if owner, dup := seen[cpu]; dup {
				a.log.Errorw("duplicate current_mask owner detected",
					"cpu", cpu, "first", owner, "second", c.ID())
				return false
			}
			seen[cpu] = c.ID()
		}
	}
	return true
}
