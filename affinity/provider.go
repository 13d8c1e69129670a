// File: affinity/provider.go
// Author: momentics <momentics@gmail.com>
//
// Provider adapts the package-level SetAffinity function to api.Affinity,
// so callers (simulation.WorkerLoop) can depend on the
// interface instead of importing this package directly.

package affinity

import (
	"sync/atomic"

	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/internal/concurrency"
)

var _ api.Affinity = (*Provider)(nil)

// Provider implements api.Affinity over SetAffinity. A non-negative numaID
// passed to Pin is handed to concurrency.PinCurrentThread; Get reports the
// NUMA node the calling thread runs on, not the numaID last passed to Pin.
type Provider struct {
	pinnedCPU atomic.Int64
}

// NewProvider constructs a Provider with no pin in effect.
func NewProvider() *Provider {
	p := &Provider{}
	p.pinnedCPU.Store(-1)
	return p
}

// Pin locks the calling goroutine's OS thread to cpuID. When numaID is
// non-negative it also calls concurrency.PinCurrentThread(numaID, cpuID),
// whose effect and errors are platform-specific (see that function).
func (p *Provider) Pin(cpuID int, numaID int) error {
	if err := SetAffinity(cpuID); err != nil {
		return err
	}
	if numaID >= 0 {
		if err := concurrency.PinCurrentThread(numaID, cpuID); err != nil {
			return err
		}
	}
	p.pinnedCPU.Store(int64(cpuID))
	return nil
}

// Unpin releases this goroutine's OS thread back to the scheduler's default
// affinity mask and clears this Provider's bookkeeping.
func (p *Provider) Unpin() error {
	concurrency.UnpinCurrentThread()
	p.pinnedCPU.Store(-1)
	return nil
}

// Get reports the CPU this Provider last pinned to (-1 if none) and the
// NUMA node the calling thread currently runs on.
func (p *Provider) Get() (cpuID int, numaID int, err error) {
	return int(p.pinnedCPU.Load()), concurrency.CurrentNUMANodeID(), nil
}
