// File: syscall/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package syscall

import (
	"sync"

	"github.com/momentics/hioload-ws/allocator"
	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/cell"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Dispatcher routes syscall ops to the allocator and cell packages and owns
// the capability -> cell mapping (spec.md §6 "persisted state: none" — this
// table is in-memory only, rebuilt at boot by create_cell calls).
type Dispatcher struct {
	alloc  *allocator.Allocator
	numCPU int

	mu    sync.Mutex
	cells map[Capability]*cell.Cell

	log *zap.SugaredLogger
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithLogger attaches a structured logger; defaults to zap.NewNop().
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New constructs a Dispatcher bound to alloc, which must already manage
// numCPU logical CPUs.
func New(alloc *allocator.Allocator, numCPU int, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		alloc:  alloc,
		numCPU: numCPU,
		cells:  make(map[Capability]*cell.Cell),
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) cellFor(cap Capability) (*cell.Cell, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.cells[cap]
	return c, ok
}

// fail logs a structured, pkg/errors-wrapped api.Error and maps its code to
// an exit code, implementing spec.md §7's "caught at the syscall boundary
// and translated to exit codes" without surfacing a Go error from Dispatch.
func (d *Dispatcher) fail(op Op, code api.ErrorCode, base error, msg string) ExitCode {
	apiErr := api.NewError(code, errors.Wrap(base, msg).Error()).WithContext("op", op)
	d.log.Errorw("syscall failed", "op", op, "code", code, "error", apiErr.Error())
	switch code {
	case api.ErrCodeMisownedReserve, api.ErrCodeDoubleWorkerRegistration:
		return BAD_CPU
	case api.ErrCodeNoCell:
		return BAD_CAP
	default:
		return BAD_PAR
	}
}

// Dispatch executes op with args and returns its result plus exit code.
// Resource scarcity (a short allocation) is never an error — it surfaces as
// SUCCESS with a partial Granted/Remainder, per spec.md §7's
// capacity-exhausted error kind.
func (d *Dispatcher) Dispatch(op Op, a Args) (Result, ExitCode) {
	switch op {
	case OpCreateHabitat:
		d.alloc.InitHabitat(a.Offset, a.Size)
		return Result{}, SUCCESS

	case OpCreateCell:
		if _, exists := d.cellFor(a.Cap); exists {
			return Result{}, d.fail(op, api.ErrCodeAlreadyExists, api.ErrAlreadyExists, "create_cell: capability in use")
		}
		c := cell.New(d.alloc, a.Prio, a.Mask, d.numCPU)
		if len(a.Mask) > 0 {
			d.alloc.Reserve(c, a.Mask[0])
		}
		d.mu.Lock()
		d.cells[a.Cap] = c
		d.mu.Unlock()
		return Result{}, SUCCESS

	case OpMxInit:
		if _, ok := d.cellFor(a.Cap); !ok {
			return Result{}, d.fail(op, api.ErrCodeNoCell, api.ErrNoCell, "mxinit")
		}
		return Result{}, SUCCESS

	case OpAllocCores:
		c, ok := d.cellFor(a.Cap)
		if !ok {
			return Result{}, d.fail(op, api.ErrCodeNoCell, api.ErrNoCell, "alloc_cores")
		}
		granted := d.alloc.Alloc(c, a.SelfCPU, a.Count)
		c.AddCores(granted)
		return Result{Granted: granted, Remainder: granted.Count()}, SUCCESS

	case OpCoreAllocation:
		c, ok := d.cellFor(a.Cap)
		if !ok {
			return Result{}, d.fail(op, api.ErrCodeNoCell, api.ErrNoCell, "core_allocation")
		}
		if a.Flag {
			return Result{Bitmask: c.OwnedMask()}, SUCCESS
		}
		return Result{Bitmask: c.CurrentMask()}, SUCCESS

	case OpCellCtrl:
		c, ok := d.cellFor(a.Cap)
		if !ok {
			return Result{}, d.fail(op, api.ErrCodeNoCell, api.ErrNoCell, "cell_ctrl")
		}
		c.Update(a.Mask, a.Index)
		return Result{}, SUCCESS

	case OpCreateEC:
		c, ok := d.cellFor(a.Cap)
		if !ok {
			return Result{}, d.fail(op, api.ErrCodeNoCell, api.ErrNoCell, "create_ec")
		}
		if c.Worker(a.CPU) != nil {
			return Result{}, d.fail(op, api.ErrCodeDoubleWorkerRegistration, api.ErrDoubleWorkerRegistration, "create_ec")
		}
		c.RegisterWorker(a.CPU)
		return Result{}, SUCCESS

	case OpCPUID:
		return Result{CPU: a.SelfCPU}, SUCCESS

	case OpReserveCore:
		c, ok := d.cellFor(a.Cap)
		if !ok {
			return Result{}, d.fail(op, api.ErrCodeNoCell, api.ErrNoCell, "reserve_core")
		}
		if !d.alloc.Reserve(c, a.CPU) {
			return Result{}, d.fail(op, api.ErrCodeMisownedReserve, api.ErrMisownedReserve, "reserve_core")
		}
		c.WakeCore(a.CPU)
		return Result{}, SUCCESS

	case OpYield:
		c, ok := d.cellFor(a.Cap)
		if !ok {
			return Result{}, d.fail(op, api.ErrCodeNoCell, api.ErrNoCell, "yield")
		}
		switch a.SubOp {
		case ReturnCore:
			c.YieldCore(a.CPU, true)
		default: // Sleep, NoBlock
			c.YieldCores([]int{a.CPU}, true)
		}
		return Result{}, SUCCESS

	default:
		return Result{}, d.fail(op, api.ErrCodeInvalidArgument, api.ErrInvalidArgument, "unknown op")
	}
}
