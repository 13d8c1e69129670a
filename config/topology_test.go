package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-ws/config"
	"github.com/stretchr/testify/require"
)

func writeTopology(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTopologyValid(t *testing.T) {
	dir := t.TempDir()
	path := writeTopology(t, dir, `
num_cpu: 4
habitats:
  - cell_id: A
    prio: 10
    cpus: [0, 1]
  - cell_id: B
    prio: 20
    cpus: [2, 3]
`)

	topo, err := config.LoadTopology(path)
	require.NoError(t, err)
	require.Equal(t, 4, topo.NumCPU)
	require.Len(t, topo.Habitats, 2)
	require.Equal(t, "A", topo.Habitats[0].CellID)
}

func TestLoadTopologyRejectsDuplicateCPU(t *testing.T) {
	dir := t.TempDir()
	path := writeTopology(t, dir, `
num_cpu: 4
habitats:
  - cell_id: A
    cpus: [0, 1]
  - cell_id: B
    cpus: [1, 2]
`)

	_, err := config.LoadTopology(path)
	require.Error(t, err)
}

func TestLoadTopologyRejectsOutOfRangeCPU(t *testing.T) {
	dir := t.TempDir()
	path := writeTopology(t, dir, `
num_cpu: 2
habitats:
  - cell_id: A
    cpus: [0, 5]
`)

	_, err := config.LoadTopology(path)
	require.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeTopology(t, dir, "num_cpu: 2\nhabitats: []\n")

	changed := make(chan *config.Topology, 1)
	w, err := config.Watch(path, func(t *config.Topology) { changed <- t }, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("num_cpu: 8\nhabitats: []\n"), 0o644))

	select {
	case t2 := <-changed:
		require.Equal(t, 8, t2.NumCPU)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not observe the write")
	}
}
