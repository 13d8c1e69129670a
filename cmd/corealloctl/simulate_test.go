package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSimulateStopsAfterDuration(t *testing.T) {
	dir := t.TempDir()
	topoPath := filepath.Join(dir, "topology.yaml")
	yaml := "num_cpu: 2\nhabitats:\n  - cell_id: a\n    prio: 1\n    cpus: [0, 1]\n"
	require.NoError(t, os.WriteFile(topoPath, []byte(yaml), 0o644))

	done := make(chan error, 1)
	go func() {
		done <- runSimulate(context.Background(), topoPath, 20*time.Millisecond, false, false)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runSimulate did not return within its duration budget")
	}
}

func TestRunSimulateRejectsMissingTopology(t *testing.T) {
	err := runSimulate(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), time.Millisecond, false, false)
	require.Error(t, err)
}
