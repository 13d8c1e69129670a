//go:build windows
// +build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific metrics/debug introspection points.

package control

import (
	"github.com/momentics/hioload-ws/internal/concurrency"
)

// RegisterPlatformProbes sets Windows-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return concurrency.NumCPUs()
	})
	dp.RegisterProbe("platform.numa_nodes", func() any {
		return concurrency.NUMANodes()
	})
}
