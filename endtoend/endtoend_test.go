// Package endtoend_test exercises compile/dispatch/simulate scenarios
// end-to-end against the fakeBackend/FakeProvider test doubles, since a real
// LLVM backend, dynamic loader, and chain database are external
// collaborators outside this module's scope. The fibonacci-style call is
// adapted to the minimal opcode subset fakeBackend understands (PUSH1/ADD/
// RETURN) rather than a full EVM opcode loop, and rather than asserting one
// literal output hash (which would presume a complete EVM interpreter) the
// AOT/JIT test asserts that both compile the same bytecode under the same
// hash and that the JIT-compiled function returns the expected sum. The AOT
// artifact itself is not loaded or called, since the fake linker does not
// produce a loadable shared object.
package endtoend_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/evmc-sim/evmc-sim/compiler"
	"github.com/evmc-sim/evmc-sim/dispatch"
	"github.com/evmc-sim/evmc-sim/registry"
	"github.com/evmc-sim/evmc-sim/simulation"
	"github.com/evmc-sim/evmc-sim/stateprovider"
)

// microLoopBytecode stands in for a fibonacci-style micro-call under the
// fakeBackend's understood opcode subset: push 5, push 3, add, return.
var microLoopBytecode = []byte{0x60, 0x05, 0x60, 0x03, 0x01, 0xf3}

func TestScenario_AOTAndJITAgree(t *testing.T) {
	opts := compiler.Default()
	opts.OutDir = t.TempDir()
	driver := compiler.NewDriver(compiler.NewFakeBackend(), compiler.NewFakeLinker(), opts)

	aotHash, err := driver.CompileAOT(context.Background(), microLoopBytecode)
	require.NoError(t, err)

	jitResult, err := driver.CompileJITMany(context.Background(), [][]byte{microLoopBytecode})
	require.NoError(t, err)
	require.Len(t, jitResult.Entries, 1)
	require.Equal(t, aotHash, jitResult.Entries[0].Hash)

	jitOut, jitGas, err := jitResult.Entries[0].Fn.Call(nil, 100000)
	require.NoError(t, err)
	require.Equal(t, []byte{8}, jitOut)
	require.Less(t, jitGas, uint64(100000))
}

func TestScenario_SingleTxRunIsRepeatable(t *testing.T) {
	provider := stateprovider.NewFakeProvider(big.NewInt(1))
	to := common.HexToAddress("0xc0ffee")
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000, To: &to}), types.LatestSignerForChainID(big.NewInt(1)), key)
	require.NoError(t, err)
	provider.SetHeader(1, &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(0)})
	provider.SetBlock(1, types.Transactions{tx}, nil)

	reg := registry.New(nil)
	ctx := dispatch.NewContext(reg, false)
	builder := simulation.NewBuilder().WithStateProvider(provider).WithExtCtx(ctx)
	sim, err := builder.IntoTxSim(tx.Hash())
	require.NoError(t, err)

	r1, err := sim.Run()
	require.NoError(t, err)
	r2, err := sim.Run()
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}

func TestScenario_TopAndBottomOfBlockSizes(t *testing.T) {
	top, err := simulation.TopOfBlock(0.4)
	require.NoError(t, err)
	bottom, err := simulation.BottomOfBlock(0.4)
	require.NoError(t, err)

	topExec, topPre := top.Split(10)
	require.Equal(t, 4, topExec[1]-topExec[0])
	require.Equal(t, 0, topPre[1]-topPre[0], "TopOfBlock must pre-execute nothing")

	bottomExec, bottomPre := bottom.Split(10)
	require.Equal(t, 4, bottomPre[1]-bottomPre[0])
	require.Equal(t, 6, bottomExec[1]-bottomExec[0])
	require.Equal(t, topExec, bottomPre, "both splits carve the same leading ceil(0.4*10) txs")
}
