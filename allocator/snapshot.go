// File: allocator/snapshot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Snapshot exposes a read-only view of global allocator state for
// diagnostics.

package allocator

// CPUState summarizes one logical CPU's allocator-visible state.
type CPUState struct {
	CPU      int
	Free     bool
	Idle     bool
	Owner    string // cell ID, or "" if kernel-owned
	Borrower string // cell ID, or "" if not borrowed
}

// AllocatorSnapshot is a point-in-time, non-atomic-as-a-whole view across
// all CPUs (consistent with the teacher's control.DebugProbes pattern of
// best-effort diagnostic snapshots, not transactional reads).
type AllocatorSnapshot struct {
	CPUs []CPUState
}

// Snapshot builds an AllocatorSnapshot for diagnostics.
func (a *Allocator) Snapshot() AllocatorSnapshot {
	a.dumpLock.Lock()
	defer a.dumpLock.Unlock()

	out := AllocatorSnapshot{CPUs: make([]CPUState, a.numCPU)}
	for cpu := 0; cpu < a.numCPU; cpu++ {
		st := CPUState{
			CPU:  cpu,
			Free: a.freeMap.Mask().Test(cpu),
			Idle: a.idleMask.Test(cpu),
		}
		if o := a.Owner(cpu); o != nil {
			st.Owner = o.ID()
		}
		if b := a.Borrower(cpu); b != nil {
			st.Borrower = b.ID()
		}
		out.CPUs[cpu] = st
	}
	return out
}
