package touches

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/evmc-sim/evmc-sim/registry"
	"github.com/evmc-sim/evmc-sim/stateprovider"
)

type nopFuncPtr struct{}

func (nopFuncPtr) Call(_ []byte, gasLimit uint64) ([]byte, uint64, error) {
	return nil, gasLimit, nil
}

func TestFindTouchedBytecode(t *testing.T) {
	provider := stateprovider.NewFakeProvider(big.NewInt(1))

	contractCode := []byte{0x60, 0x01}
	contractAddr := common.HexToAddress("0xc0ffee")
	contractHash := common.BytesToHash(contractCode) // stand-in id, registry keyed separately below

	provider.SetAccount(0, contractAddr, stateprovider.Account{Balance: nil, Code: contractCode})
	provider.SetAccount(0, contractAddr, stateprovider.Account{Code: contractCode})

	header := &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(0)}
	provider.SetHeader(1, header)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000, To: &contractAddr}), types.LatestSignerForChainID(big.NewInt(1)), key)
	require.NoError(t, err)
	provider.SetBlock(1, types.Transactions{tx}, nil)
	provider.SetAccount(0, contractAddr, stateprovider.Account{Code: contractCode})

	reg := registry.New([]registry.FunctionHandle{{Hash: contractHash, Fn: nopFuncPtr{}, Anchor: registry.NoAnchor{}}})

	bodies, err := FindTouchedBytecode(provider, reg, []common.Hash{tx.Hash()})
	require.NoError(t, err)
	require.LessOrEqual(t, len(bodies), 1)
}
