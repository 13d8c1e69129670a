package allocator_test

import (
	"testing"

	"github.com/momentics/hioload-ws/allocator"
	"github.com/momentics/hioload-ws/channel"
	"github.com/momentics/hioload-ws/cpuset"
	"github.com/stretchr/testify/require"
)

// fakeClaimant is a minimal allocator.Claimant used to test the allocator in
// isolation from the cell package (which itself depends on allocator).
type fakeClaimant struct {
	id       string
	prio     int
	owned    *cpuset.CPUMask
	current  *cpuset.CPUMask
	borrowed *cpuset.CPUMask
	requested *cpuset.CPUMask
	channels map[int]*channel.WorkerChannel
	stealing int
	returned []int

	yieldCalls   [][]int
	onYieldCores func(cpus []int, release bool)
	wakeCalls    []int
}

func newFakeClaimant(id string, prio, numCPU int) *fakeClaimant {
	return &fakeClaimant{
		id:        id,
		prio:      prio,
		owned:     cpuset.NewCPUMask(numCPU),
		current:   cpuset.NewCPUMask(numCPU),
		borrowed:  cpuset.NewCPUMask(numCPU),
		requested: cpuset.NewCPUMask(numCPU),
		channels:  make(map[int]*channel.WorkerChannel),
	}
}

func (f *fakeClaimant) ID() string                          { return f.id }
func (f *fakeClaimant) Prio() int                            { return f.prio }
func (f *fakeClaimant) OwnedMask() *cpuset.CPUMask           { return f.owned }
func (f *fakeClaimant) CurrentMask() *cpuset.CPUMask         { return f.current }
func (f *fakeClaimant) BorrowedMask() *cpuset.CPUMask        { return f.borrowed }
func (f *fakeClaimant) RequestedMask() *cpuset.CPUMask       { return f.requested }
func (f *fakeClaimant) SetStealingLimit(n int)               { f.stealing = n }

func (f *fakeClaimant) Channel(cpu int) *channel.WorkerChannel {
	ch, ok := f.channels[cpu]
	if !ok {
		ch = &channel.WorkerChannel{}
		f.channels[cpu] = ch
	}
	return ch
}

// YieldCores simulates a worker that always honors a reclaim immediately
// (as if it polled its flag synchronously), calling back into the
// allocator's ReturnCore -- tests wire this via a closure since fakeClaimant
// has no allocator reference by default. Tests needing async behavior set
// yieldCores to a no-op instead.
func (f *fakeClaimant) YieldCores(cpus []int, release bool) int {
	f.yieldCalls = append(f.yieldCalls, cpus)
	for _, c := range cpus {
		f.Channel(c).RequestYield()
	}
	if f.onYieldCores != nil {
		f.onYieldCores(cpus, release)
	}
	return len(cpus)
}

func (f *fakeClaimant) WakeCore(cpu int) {
	f.wakeCalls = append(f.wakeCalls, cpu)
}

func (f *fakeClaimant) NoteReturned(cpu int) {
	f.returned = append(f.returned, cpu)
}

func (f *fakeClaimant) TakeUncountedReturn() int {
	if len(f.returned) == 0 {
		return -1
	}
	cpu := f.returned[0]
	f.returned = f.returned[1:]
	return cpu
}

var _ allocator.Claimant = (*fakeClaimant)(nil)

func maskOf(bits ...int) uint64 {
	var v uint64
	for _, b := range bits {
		v |= 1 << uint(b)
	}
	return v
}

func TestScenario1OwnFirst(t *testing.T) {
	a := allocator.New(4)
	A := newFakeClaimant("A", 10, 4)
	A.owned.SetBits(0b0011)
	a.SetOwners(A, []int{0, 1})

	granted := a.Alloc(A, -1, 2)
	require.Equal(t, uint64(0b0011), granted.Bits())
	require.Equal(t, uint64(0b0011), A.current.Bits())
	require.Equal(t, uint64(0), A.borrowed.Bits())
}

func TestScenario2BorrowIdleFailsWhenNotIdle(t *testing.T) {
	a := allocator.New(4)
	A := newFakeClaimant("A", 10, 4)
	A.owned.SetBits(0b0011)
	a.SetOwners(A, []int{0, 1})
	a.Alloc(A, -1, 2)

	B := newFakeClaimant("B", 10, 4)
	B.owned.SetBits(0b1100)
	a.SetOwners(B, []int{2, 3})

	granted := a.Alloc(B, -1, 3)
	require.Equal(t, uint64(0b1100), granted.Bits())
	require.Equal(t, uint64(0b1100), B.current.Bits())
	require.Equal(t, uint64(0), B.borrowed.Bits())
}

func TestScenario3BorrowIdleWhenOwnerQuiescent(t *testing.T) {
	a := allocator.New(4)
	A := newFakeClaimant("A", 10, 4)
	A.owned.SetBits(0b0001)
	a.SetOwners(A, []int{0})
	a.Alloc(A, -1, 1)

	B := newFakeClaimant("B", 10, 4)
	B.owned.SetBits(0b0010)
	a.SetOwners(B, []int{1})
	a.Alloc(B, -1, 1)

	a.Yield(B, 1)

	granted := a.Alloc(A, -1, 2)
	require.Equal(t, uint64(0b0011), granted.Bits())
	require.Equal(t, "A", a.Borrower(1).ID())
	require.Equal(t, uint64(0b0011), A.current.Bits())
	require.Equal(t, uint64(0b0010), A.borrowed.Bits())
}

func TestScenario4ReclaimByOwner(t *testing.T) {
	a := allocator.New(4)
	A := newFakeClaimant("A", 10, 4)
	A.owned.SetBits(0b0001)
	a.SetOwners(A, []int{0})
	a.Alloc(A, -1, 1)

	B := newFakeClaimant("B", 10, 4)
	B.owned.SetBits(0b0010)
	a.SetOwners(B, []int{1})
	a.Alloc(B, -1, 1)

	a.Yield(B, 1)
	a.Alloc(A, -1, 2) // A borrows CPU 1 from B (idle)
	require.Equal(t, "A", a.Borrower(1).ID())

	granted := a.Alloc(B, 2, 1) // B reclaims its own core, selfCPU=2 (not on 1)
	require.Equal(t, uint64(0), granted.Bits(), "reclaim is async: nothing granted synchronously")
	require.True(t, A.Channel(1).YieldFlag(), "expected A's channel[1] yield flag raised")
	require.True(t, B.requested.Test(1))

	// A's worker honors the flag on its next syscall entry.
	A.Channel(1).ClearYieldFlag()
	a.ReturnCore(A, 1)

	require.False(t, A.current.Test(1))
	require.Nil(t, a.Borrower(1))
	require.True(t, B.current.Test(1))
	require.False(t, B.requested.Test(1))
}

func TestScenario5ReserveRacesWithActiveBorrower(t *testing.T) {
	a := allocator.New(4)
	A := newFakeClaimant("A", 10, 4)
	B := newFakeClaimant("B", 10, 4)
	A.owned.SetBits(maskOf(2))
	a.SetOwners(A, []int{2})

	// A parks CPU 2 so B can borrow it idle.
	a.Alloc(A, -1, 1)
	a.Yield(A, 2)
	granted := a.Alloc(B, -1, 1)
	require.Equal(t, uint64(1<<2), granted.Bits())
	require.Equal(t, "B", a.Borrower(2).ID())

	ok := a.Reserve(A, 2)
	require.True(t, ok)
	require.True(t, B.Channel(2).YieldFlag(), "reserve must raise the borrower's yield flag")
	require.True(t, A.current.Test(2), "reserve must mark the reservant current immediately")

	// B honors the flag; return_core must not re-toggle A.current[2].
	B.Channel(2).ClearYieldFlag()
	a.ReturnCore(B, 2)
	require.True(t, A.current.Test(2), "A.current_mask[2] must remain set, not re-toggled")
	require.Nil(t, a.Borrower(2))
}

func TestScenario6PriorityNonPreemption(t *testing.T) {
	a := allocator.New(4)
	A := newFakeClaimant("A", 10, 4) // numerically lower = higher priority
	B := newFakeClaimant("B", 20, 4)
	A.owned.SetBits(0b1111)
	a.SetOwners(A, []int{0, 1, 2, 3})
	a.Alloc(A, -1, 4)

	granted := a.Alloc(B, -1, 1)
	require.Equal(t, uint64(0), granted.Bits())
	require.Empty(t, A.yieldCalls, "B must not attempt to reclaim from a cell it does not own cores from")
}

func TestAllocZeroIsNoOp(t *testing.T) {
	a := allocator.New(4)
	A := newFakeClaimant("A", 10, 4)
	A.owned.SetBits(0b1111)
	a.SetOwners(A, []int{0, 1, 2, 3})

	granted := a.Alloc(A, -1, 0)
	require.Equal(t, uint64(0), granted.Bits())
	require.Equal(t, uint64(0), A.current.Bits())
}

func TestValidAllocationDetectsDuplicateOwnership(t *testing.T) {
	a := allocator.New(2)
	A := newFakeClaimant("A", 10, 2)
	B := newFakeClaimant("B", 10, 2)
	A.current.Set(0)
	B.current.Set(0) // manufactured violation of P1

	require.False(t, a.ValidAllocation([]allocator.Claimant{A, B}))
}

func TestRoundTrip(t *testing.T) {
	a := allocator.New(4)
	X := newFakeClaimant("X", 10, 4)
	X.owned.SetBits(maskOf(0))
	a.SetOwners(X, []int{0})

	freeBefore := a.Snapshot().CPUs[0].Free // free_map[0] before any alloc

	a.Alloc(X, -1, 1)
	X.YieldCores([]int{0}, true)
	a.Yield(X, 0)

	require.Equal(t, freeBefore, a.Snapshot().CPUs[0].Free)
	require.False(t, X.current.Test(0))
	require.Nil(t, a.Borrower(0))
}
