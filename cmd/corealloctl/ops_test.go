package main

import (
	"testing"

	sys "github.com/momentics/hioload-ws/syscall"
	"github.com/stretchr/testify/require"
)

func TestParseCSVInts(t *testing.T) {
	got, err := parseCSVInts(" 0, 1,2 ")
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, got)

	got, err = parseCSVInts("")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = parseCSVInts("a,b")
	require.Error(t, err)
}

func TestParseYieldSubOp(t *testing.T) {
	cases := map[string]sys.YieldSubOp{
		"":            sys.ReturnCore,
		"return-core": sys.ReturnCore,
		"sleep":       sys.Sleep,
		"no-block":    sys.NoBlock,
		"Sleep":       sys.Sleep,
	}
	for in, want := range cases {
		got, err := parseYieldSubOp(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := parseYieldSubOp("bogus")
	require.Error(t, err)
}

func TestCreateCellCmdDispatchesSuccess(t *testing.T) {
	numCPU := 4
	cmd := newCreateCellCmd(&numCPU)
	cmd.SetArgs([]string{"--mask", "0,1"})
	require.NoError(t, cmd.Execute())
}

func TestAllocCoresCmdReportsGrantedMask(t *testing.T) {
	numCPU := 4
	cmd := newAllocCoresCmd(&numCPU)
	cmd.SetArgs([]string{"--mask", "0,1", "--count", "2", "--self-cpu", "-1"})
	require.NoError(t, cmd.Execute())
}
