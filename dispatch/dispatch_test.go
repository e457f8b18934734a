package dispatch

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/evmc-sim/evmc-sim/interp"
	"github.com/evmc-sim/evmc-sim/registry"
)

type constFuncPtr struct{ out byte }

func (c constFuncPtr) Call(_ []byte, gasLimit uint64) ([]byte, uint64, error) {
	return []byte{c.out}, gasLimit - 10, nil
}

func fallback(f interp.Frame) (interp.FrameResult, error) {
	return interp.FrameResult{Output: []byte{0xff}, GasUsed: 100, Success: true}, nil
}

func TestInstall_PrefersNativeOverFallback(t *testing.T) {
	hash := common.HexToHash("0xaa")
	reg := registry.New([]registry.FunctionHandle{
		{Hash: hash, Fn: constFuncPtr{out: 7}, Anchor: registry.NoAnchor{}},
	})
	ctx := NewContext(reg, true)

	host := interp.NewHost(fallback)
	restore := Install(host, ctx)
	defer restore()

	res, err := host.ExecuteFrame(interp.Frame{BytecodeHash: hash, GasLimit: 1000, BytecodeAddress: common.HexToAddress("0x01")})
	require.NoError(t, err)
	require.Equal(t, []byte{7}, res.Output)

	res2, err := host.ExecuteFrame(interp.Frame{BytecodeHash: common.HexToHash("0xbb"), GasLimit: 1000, BytecodeAddress: common.HexToAddress("0x02")})
	require.NoError(t, err)
	require.Equal(t, []byte{0xff}, res2.Output)

	touches := ctx.Touches.Snapshot()
	require.EqualValues(t, 1, touches[common.HexToAddress("0x01")].NativeCalls)
	require.EqualValues(t, 0, touches[common.HexToAddress("0x02")].NativeCalls)
	require.EqualValues(t, 1, touches[common.HexToAddress("0x02")].TotalCalls)
}

func TestEffectiveAddress_DelegateCall(t *testing.T) {
	f := interp.Frame{
		BytecodeAddress: common.HexToAddress("0x01"),
		TargetAddress:   common.HexToAddress("0x02"),
		IsDelegate:      true,
	}
	require.Equal(t, common.HexToAddress("0x01"), f.EffectiveAddress())

	f.IsDelegate = false
	require.Equal(t, common.HexToAddress("0x01"), f.EffectiveAddress())
}
