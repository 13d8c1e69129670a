// File: syscall/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Op numbers, exit codes, and the Dispatch argument/result shapes, per
// spec.md §6. Op 22 (create_ec, registering a worker) is named only in §7's
// error-kinds list ("double-worker-registration... create_ec"), not in the
// table itself; it is numbered here between cell_ctrl (21) and cpuid (23) to
// fill the gap the table leaves.

package syscall

import "github.com/momentics/hioload-ws/cpuset"

// Op identifies a syscall in the dispatch table.
type Op int

const (
	OpYield          Op = 16
	OpMxInit         Op = 17
	OpAllocCores     Op = 18
	OpCoreAllocation Op = 19
	OpCreateCell     Op = 20
	OpCellCtrl       Op = 21
	OpCreateEC       Op = 22
	OpCPUID          Op = 23
	OpReserveCore    Op = 24
	OpCreateHabitat  Op = 25
)

// ExitCode is the fixed, opaque-bit-pattern result class every syscall
// returns (spec.md §6: "concrete bit patterns are whatever the surrounding
// syscall ABI fixes").
type ExitCode int

const (
	SUCCESS ExitCode = iota
	BAD_CAP
	BAD_CPU
	BAD_PAR
	QUO_OOM
)

func (e ExitCode) String() string {
	switch e {
	case SUCCESS:
		return "SUCCESS"
	case BAD_CAP:
		return "BAD_CAP"
	case BAD_CPU:
		return "BAD_CPU"
	case BAD_PAR:
		return "BAD_PAR"
	case QUO_OOM:
		return "QUO_OOM"
	default:
		return "UNKNOWN"
	}
}

// YieldSubOp is the sub-operation carried by OpYield.
type YieldSubOp int

const (
	ReturnCore YieldSubOp = iota
	Sleep
	NoBlock
)

// Capability is the opaque caller-supplied slot a cell is installed into.
// Capability/object-space management is an out-of-scope collaborator
// (spec.md §1); the dispatcher only ever looks one up or records one.
type Capability uint64

// Args bundles every op's inputs; only the fields relevant to the op being
// dispatched are read.
type Args struct {
	Cap Capability

	EntryPoint uintptr
	ChannelVA  uintptr
	Prio       int

	Count   int
	SelfCPU int

	Flag bool // core_allocation: true => owned_mask, false => current_mask

	Mask   []int
	Offset int
	Size   int
	Index  int

	CPU   int
	SubOp YieldSubOp
}

// Result bundles every op's outputs; unused fields are zero.
type Result struct {
	Granted   *cpuset.CPUMask
	Remainder int
	Bitmask   *cpuset.CPUMask
	CPU       int
}
