package affinity_test

import (
	"testing"

	"github.com/momentics/hioload-ws/affinity"
	"github.com/stretchr/testify/require"
)

func TestProviderStartsUnpinned(t *testing.T) {
	p := affinity.NewProvider()
	cpu, _, err := p.Get()
	require.NoError(t, err)
	require.Equal(t, -1, cpu)
}

func TestProviderUnpinResetsBookkeeping(t *testing.T) {
	p := affinity.NewProvider()
	if err := p.Pin(0, 0); err != nil {
		t.Skipf("affinity not supported in this environment: %v", err)
	}
	cpu, _, err := p.Get()
	require.NoError(t, err)
	require.Equal(t, 0, cpu)

	require.NoError(t, p.Unpin())
	cpu, _, err = p.Get()
	require.NoError(t, err)
	require.Equal(t, -1, cpu)
}
