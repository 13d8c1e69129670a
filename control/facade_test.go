package control_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-ws/control"
	"github.com/stretchr/testify/require"
)

func TestFacadeConfigRoundTrip(t *testing.T) {
	f := control.NewFacade()
	reloaded := false
	f.OnReload(func() { reloaded = true })

	require.NoError(t, f.SetConfig(map[string]any{"num_cpu": 8}))
	require.Equal(t, 8, f.GetConfig()["num_cpu"])
	require.Eventually(t, func() bool { return reloaded }, time.Second, time.Millisecond)
}

func TestFacadeProbesAndMetrics(t *testing.T) {
	f := control.NewFacade()
	f.RegisterDebugProbe("cells", func() any { return 3 })
	f.SetMetric("allocs_total", 42)

	require.Equal(t, 3, f.DumpState()["cells"])
	require.Equal(t, 42, f.Stats()["allocs_total"])
}
