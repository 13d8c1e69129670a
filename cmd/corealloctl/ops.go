// File: cmd/corealloctl/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One subcommand per dispatch-table op (spec.md §6). Each subcommand is
// self-contained: it builds a fresh Allocator/Dispatcher pair sized by
// --num-cpu, performs whatever create_cell/create_ec preconditions its op
// needs, runs the op itself, and prints the Dispatch result as JSON. This
// mirrors the single-address-space lifetime the real dispatch table has
// (spec.md §6 "persisted state: none") without pretending a CLI process
// boundary can stand in for a kernel's in-memory capability table.

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/momentics/hioload-ws/allocator"
	"github.com/momentics/hioload-ws/internal/concurrency"
	sys "github.com/momentics/hioload-ws/syscall"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const demoCap = sys.Capability(1)

func parseCSVInts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "parse cpu list %q", s)
		}
		out = append(out, v)
	}
	return out, nil
}

func printResult(res sys.Result, code sys.ExitCode) error {
	out := map[string]any{"exit_code": code.String()}
	if res.Granted != nil {
		out["granted"] = lo.FilterMap(res.Granted.Snapshot(), func(set bool, i int) (int, bool) { return i, set })
		out["granted_count"] = res.Granted.Count()
	}
	if res.Bitmask != nil {
		out["bitmask_bits"] = res.Bitmask.Bits()
	}
	out["remainder"] = res.Remainder
	out["cpu"] = res.CPU
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}

func dispatcherFor(numCPU int) (*allocator.Allocator, *sys.Dispatcher) {
	a := allocator.New(numCPU)
	return a, sys.New(a, numCPU)
}

func newCreateHabitatCmd(numCPU *int) *cobra.Command {
	var offset, size int
	cmd := &cobra.Command{
		Use:   "create-habitat",
		Short: "Reserve a CPU range as a fresh habitat (op 25)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, d := dispatcherFor(*numCPU)
			res, code := d.Dispatch(sys.OpCreateHabitat, sys.Args{Offset: offset, Size: size})
			return printResult(res, code)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "first CPU id of the habitat")
	cmd.Flags().IntVar(&size, "size", 1, "number of CPUs in the habitat")
	return cmd
}

func newCreateCellCmd(numCPU *int) *cobra.Command {
	var prio int
	var maskCSV string
	cmd := &cobra.Command{
		Use:   "create-cell",
		Short: "Install a cell at a fixed demo capability (op 20)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseCSVInts(maskCSV)
			if err != nil {
				return err
			}
			_, d := dispatcherFor(*numCPU)
			res, code := d.Dispatch(sys.OpCreateCell, sys.Args{Cap: demoCap, Prio: prio, Mask: mask})
			return printResult(res, code)
		},
	}
	cmd.Flags().IntVar(&prio, "prio", 10, "cell priority (lower is higher)")
	cmd.Flags().StringVar(&maskCSV, "mask", "", "comma-separated CPU ids this cell owns")
	return cmd
}

func newCreateECCmd(numCPU *int) *cobra.Command {
	var maskCSV string
	var cpu int
	cmd := &cobra.Command{
		Use:   "create-ec",
		Short: "Create a cell, then register a worker on it (ops 20, 22)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseCSVInts(maskCSV)
			if err != nil {
				return err
			}
			_, d := dispatcherFor(*numCPU)
			if _, code := d.Dispatch(sys.OpCreateCell, sys.Args{Cap: demoCap, Mask: mask}); code != sys.SUCCESS {
				return printResult(sys.Result{}, code)
			}
			res, code := d.Dispatch(sys.OpCreateEC, sys.Args{Cap: demoCap, CPU: cpu})
			return printResult(res, code)
		},
	}
	cmd.Flags().StringVar(&maskCSV, "mask", "", "comma-separated CPU ids the cell owns")
	cmd.Flags().IntVar(&cpu, "cpu", 0, "CPU id to register a worker on")
	return cmd
}

func newAllocCoresCmd(numCPU *int) *cobra.Command {
	var maskCSV string
	var count, selfCPU int
	cmd := &cobra.Command{
		Use:   "alloc-cores",
		Short: "Create a cell, then request count cores for it (ops 20, 18)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseCSVInts(maskCSV)
			if err != nil {
				return err
			}
			_, d := dispatcherFor(*numCPU)
			if _, code := d.Dispatch(sys.OpCreateCell, sys.Args{Cap: demoCap, Mask: mask}); code != sys.SUCCESS {
				return printResult(sys.Result{}, code)
			}
			res, code := d.Dispatch(sys.OpAllocCores, sys.Args{Cap: demoCap, Count: count, SelfCPU: selfCPU})
			return printResult(res, code)
		},
	}
	cmd.Flags().StringVar(&maskCSV, "mask", "", "comma-separated CPU ids the cell owns")
	cmd.Flags().IntVar(&count, "count", 1, "number of cores requested")
	cmd.Flags().IntVar(&selfCPU, "self-cpu", -1, "caller's current CPU id, or -1")
	return cmd
}

func newCoreAllocationCmd(numCPU *int) *cobra.Command {
	var maskCSV string
	var count int
	var owned bool
	cmd := &cobra.Command{
		Use:   "core-allocation",
		Short: "Create a cell, allocate, then read back its mask (ops 20, 18, 19)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseCSVInts(maskCSV)
			if err != nil {
				return err
			}
			_, d := dispatcherFor(*numCPU)
			if _, code := d.Dispatch(sys.OpCreateCell, sys.Args{Cap: demoCap, Mask: mask}); code != sys.SUCCESS {
				return printResult(sys.Result{}, code)
			}
			if count > 0 {
				if _, code := d.Dispatch(sys.OpAllocCores, sys.Args{Cap: demoCap, Count: count, SelfCPU: -1}); code != sys.SUCCESS {
					return printResult(sys.Result{}, code)
				}
			}
			res, code := d.Dispatch(sys.OpCoreAllocation, sys.Args{Cap: demoCap, Flag: owned})
			return printResult(res, code)
		},
	}
	cmd.Flags().StringVar(&maskCSV, "mask", "", "comma-separated CPU ids the cell owns")
	cmd.Flags().IntVar(&count, "count", 0, "cores to allocate before reading back, if > 0")
	cmd.Flags().BoolVar(&owned, "owned", true, "true: owned_mask, false: current_mask")
	return cmd
}

func newCellCtrlCmd(numCPU *int) *cobra.Command {
	var maskCSV, newMaskCSV string
	var offset int
	cmd := &cobra.Command{
		Use:   "cell-ctrl",
		Short: "Create a cell, then reassign its habitat stripe (ops 20, 21)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseCSVInts(maskCSV)
			if err != nil {
				return err
			}
			newMask, err := parseCSVInts(newMaskCSV)
			if err != nil {
				return err
			}
			_, d := dispatcherFor(*numCPU)
			if _, code := d.Dispatch(sys.OpCreateCell, sys.Args{Cap: demoCap, Mask: mask}); code != sys.SUCCESS {
				return printResult(sys.Result{}, code)
			}
			res, code := d.Dispatch(sys.OpCellCtrl, sys.Args{Cap: demoCap, Mask: newMask, Index: offset})
			return printResult(res, code)
		},
	}
	cmd.Flags().StringVar(&maskCSV, "mask", "", "comma-separated CPU ids the cell initially owns")
	cmd.Flags().StringVar(&newMaskCSV, "new-mask", "", "comma-separated CPU ids to reassign")
	cmd.Flags().IntVar(&offset, "offset", 0, "habitat stripe base CPU id")
	return cmd
}

func newReserveCoreCmd(numCPU *int) *cobra.Command {
	var maskCSV string
	var cpu int
	cmd := &cobra.Command{
		Use:   "reserve-core",
		Short: "Create a cell owning cpu, then reserve it (ops 20, 24)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseCSVInts(maskCSV)
			if err != nil {
				return err
			}
			_, d := dispatcherFor(*numCPU)
			if _, code := d.Dispatch(sys.OpCreateCell, sys.Args{Cap: demoCap, Mask: mask}); code != sys.SUCCESS {
				return printResult(sys.Result{}, code)
			}
			res, code := d.Dispatch(sys.OpReserveCore, sys.Args{Cap: demoCap, CPU: cpu})
			return printResult(res, code)
		},
	}
	cmd.Flags().StringVar(&maskCSV, "mask", "", "comma-separated CPU ids the cell owns")
	cmd.Flags().IntVar(&cpu, "cpu", 0, "CPU id to reserve")
	return cmd
}

func newCPUIDCmd(numCPU *int) *cobra.Command {
	var selfCPU, numaNode int
	cmd := &cobra.Command{
		Use:   "cpuid",
		Short: "Echo back the calling CPU id (op 23), or suggest one for a NUMA node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if numaNode >= 0 {
				fmt.Printf("preferred CPU for NUMA node %d: %d\n", numaNode, concurrency.PreferredCPUID(numaNode))
				return nil
			}
			_, d := dispatcherFor(*numCPU)
			res, code := d.Dispatch(sys.OpCPUID, sys.Args{SelfCPU: selfCPU})
			return printResult(res, code)
		},
	}
	cmd.Flags().IntVar(&selfCPU, "self-cpu", 0, "CPU id to echo")
	cmd.Flags().IntVar(&numaNode, "numa-node", -1, "instead of echoing, print a platform-suggested CPU id for this NUMA node")
	return cmd
}

func newYieldCmd(numCPU *int) *cobra.Command {
	var maskCSV string
	var cpu, count int
	var subOp string
	cmd := &cobra.Command{
		Use:   "yield",
		Short: "Create a cell, allocate, register a worker, then yield a core (ops 20, 18, 22, 16)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseCSVInts(maskCSV)
			if err != nil {
				return err
			}
			sub, err := parseYieldSubOp(subOp)
			if err != nil {
				return err
			}
			_, d := dispatcherFor(*numCPU)
			if _, code := d.Dispatch(sys.OpCreateCell, sys.Args{Cap: demoCap, Mask: mask}); code != sys.SUCCESS {
				return printResult(sys.Result{}, code)
			}
			if count > 0 {
				if _, code := d.Dispatch(sys.OpAllocCores, sys.Args{Cap: demoCap, Count: count, SelfCPU: -1}); code != sys.SUCCESS {
					return printResult(sys.Result{}, code)
				}
			}
			if _, code := d.Dispatch(sys.OpCreateEC, sys.Args{Cap: demoCap, CPU: cpu}); code != sys.SUCCESS {
				return printResult(sys.Result{}, code)
			}
			res, code := d.Dispatch(sys.OpYield, sys.Args{Cap: demoCap, CPU: cpu, SubOp: sub})
			return printResult(res, code)
		},
	}
	cmd.Flags().StringVar(&maskCSV, "mask", "", "comma-separated CPU ids the cell owns")
	cmd.Flags().IntVar(&cpu, "cpu", 0, "CPU id to yield")
	cmd.Flags().IntVar(&count, "count", 1, "cores to allocate before yielding, if > 0")
	cmd.Flags().StringVar(&subOp, "sub-op", "return-core", "return-core | sleep | no-block")
	return cmd
}

func parseYieldSubOp(s string) (sys.YieldSubOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "return-core", "":
		return sys.ReturnCore, nil
	case "sleep":
		return sys.Sleep, nil
	case "no-block":
		return sys.NoBlock, nil
	default:
		return 0, errors.Errorf("unknown yield sub-op %q", s)
	}
}
