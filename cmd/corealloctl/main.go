// File: cmd/corealloctl/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// corealloctl is a command-line front end over the allocator/cell/syscall
// stack: one subcommand per dispatch-table op for ad-hoc exercising, plus
// "serve" (a long-lived process fronting one Dispatcher over HTTP) and
// "simulate" (runs the simulation driver against a loaded topology). Root
// command shape grounded on the teacher pack's cobra.Command tree
// (sergelogvinov-karpenter-provider-proxmox's cmd/instancetypes).

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/momentics/hioload-ws/internal/concurrency"
	"github.com/spf13/cobra"
)

var (
	version = "v0.0.0"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var numCPU int

	root := &cobra.Command{
		Use:           "corealloctl",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		Short:         "Exercise and simulate the dynamic CPU-core allocator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&numCPU, "num-cpu", concurrency.NumCPUs(), "logical CPU count for this invocation's allocator")

	root.AddCommand(
		newCreateHabitatCmd(&numCPU),
		newCreateCellCmd(&numCPU),
		newCreateECCmd(&numCPU),
		newAllocCoresCmd(&numCPU),
		newCoreAllocationCmd(&numCPU),
		newCellCtrlCmd(&numCPU),
		newReserveCoreCmd(&numCPU),
		newCPUIDCmd(&numCPU),
		newYieldCmd(&numCPU),
		newServeCmd(),
		newSimulateCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "arg(s)") || strings.Contains(msg, "flag") || strings.Contains(msg, "command") {
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", msg)
			fmt.Fprintln(os.Stderr, root.UsageString())
		} else {
			fmt.Fprintln(os.Stderr, "Execute error:", err)
		}
		return 1
	}
	return 0
}
