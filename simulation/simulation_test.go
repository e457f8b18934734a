package simulation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evmc-sim/evmc-sim/dispatch"
	"github.com/evmc-sim/evmc-sim/registry"
	"github.com/evmc-sim/evmc-sim/stateprovider"
)

type echoFuncPtr struct{ out byte }

func (e echoFuncPtr) Call(_ []byte, gasLimit uint64) ([]byte, uint64, error) {
	return []byte{e.out}, gasLimit - 21000, nil
}

func TestCallSim_UsesNativeRegistry(t *testing.T) {
	provider := stateprovider.NewFakeProvider(big.NewInt(1))
	bytecode := []byte{0x60, 0x02}
	hash := codeHashOf(bytecode)

	reg := registry.New([]registry.FunctionHandle{
		{Hash: hash, Fn: echoFuncPtr{out: 42}, Anchor: registry.NoAnchor{}},
	})
	ctx := dispatch.NewContext(reg, true)

	sim, err := NewBuilder().WithStateProvider(provider).WithExtCtx(ctx).
		IntoCallSim(bytecode, nil, 100000)
	require.NoError(t, err)

	results, err := sim.Run()
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	require.Equal(t, []byte{42}, results[0].Output)
}

func TestRun_IsRepeatable(t *testing.T) {
	provider := stateprovider.NewFakeProvider(big.NewInt(1))
	bytecode := []byte{0x60, 0x02}
	hash := codeHashOf(bytecode)
	reg := registry.New([]registry.FunctionHandle{{Hash: hash, Fn: echoFuncPtr{out: 9}, Anchor: registry.NoAnchor{}}})
	ctx := dispatch.NewContext(reg, false)

	sim, err := NewBuilder().WithStateProvider(provider).WithExtCtx(ctx).
		IntoCallSim(bytecode, nil, 100000)
	require.NoError(t, err)

	r1, err := sim.Run()
	require.NoError(t, err)
	r2, err := sim.Run()
	require.NoError(t, err)
	require.Equal(t, r1, r2, "identical simulation runs must produce identical results")
}

func TestBlockPart_Split_TopOfBlockExecutesLeadingWithEmptyPreSet(t *testing.T) {
	top, err := TopOfBlock(0.4)
	require.NoError(t, err)

	exec, pre := top.Split(10)
	require.Equal(t, [2]int{0, 4}, exec)
	require.Equal(t, 0, pre[1]-pre[0], "TopOfBlock must pre-execute nothing")
}

func TestBlockPart_Split_BottomOfBlockPreExecutesLeadingExecutesTrailing(t *testing.T) {
	bottom, err := BottomOfBlock(0.4)
	require.NoError(t, err)

	exec, pre := bottom.Split(10)
	require.Equal(t, [2]int{0, 4}, pre)
	require.Equal(t, [2]int{4, 10}, exec)
}

func TestBlockPart_RejectsOutOfRangeFraction(t *testing.T) {
	_, err := TopOfBlock(1.5)
	require.Error(t, err)
	_, err = BottomOfBlock(-0.1)
	require.Error(t, err)
}
