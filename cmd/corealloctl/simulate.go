// File: cmd/corealloctl/simulate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// "simulate" loads a topology and runs the simulation driver against it
// until the context is canceled (SIGINT/SIGTERM) or, if --duration is set,
// a deadline elapses. --watch keeps the driver's topology file under
// fsnotify and logs reloads without restarting the driver (rebuilding a
// live allocator from a changed topology is out of scope for this
// harness — see DESIGN.md).

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/hioload-ws/config"
	"github.com/momentics/hioload-ws/simulation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSimulateCmd() *cobra.Command {
	var topoPath string
	var duration time.Duration
	var pin, watch bool
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the simulation driver against a topology file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), topoPath, duration, pin, watch)
		},
	}
	cmd.Flags().StringVar(&topoPath, "topology", "", "path to a topology YAML file (required)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long; 0 means run until signaled")
	cmd.Flags().BoolVar(&pin, "affinity", false, "pin each simulated worker goroutine to its CPU")
	cmd.Flags().BoolVar(&watch, "watch", false, "log topology file changes without restarting the driver")
	_ = cmd.MarkFlagRequired("topology")
	return cmd
}

func runSimulate(ctx context.Context, topoPath string, duration time.Duration, pin, watch bool) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	topo, err := config.LoadTopology(topoPath)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx := sigCtx
	if duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(sigCtx, duration)
		defer cancel()
	}

	if watch {
		w, err := config.Watch(topoPath, func(t *config.Topology) {
			log.Infow("topology changed on disk", "num_cpu", t.NumCPU, "habitats", len(t.Habitats))
		}, log)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	driver := simulation.New(topo,
		simulation.WithLogger(log),
		simulation.WithAffinity(pin),
		simulation.WithHeartbeat(time.Second))

	log.Infow("simulation starting", "num_cpu", topo.NumCPU, "habitats", len(topo.Habitats))
	driver.Run(runCtx)
	log.Info("simulation stopped")
	return nil
}
