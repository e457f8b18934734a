package measure

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/evmc-sim/evmc-sim/dispatch"
	"github.com/evmc-sim/evmc-sim/simulation/txexec"
)

func TestMeasureExecutionTime_RunsWarmupAndMeasure(t *testing.T) {
	calls := 0
	m, err := MeasureExecutionTime(3, 5, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 8, calls)
	require.Equal(t, 5, m.Samples)
}

func TestCheckValidity_GasMismatchIsHardError(t *testing.T) {
	results := []txexec.TxResult{{Hash: common.HexToHash("0x1"), GasUsed: 100, Success: true}}
	receipts := types.Receipts{{CumulativeGasUsed: 50, Status: types.ReceiptStatusSuccessful}}

	_, err := CheckValidity(results, receipts, nil, false)
	require.Error(t, err)
}

func TestCheckValidity_PartialTouchMismatchIsWarningOnly(t *testing.T) {
	results := []txexec.TxResult{{Hash: common.HexToHash("0x1"), GasUsed: 50, Success: true}}
	receipts := types.Receipts{{CumulativeGasUsed: 50, Status: types.ReceiptStatusSuccessful}}
	touches := map[common.Address]dispatch.TouchCounter{
		common.HexToAddress("0x1"): {TotalCalls: 3, NativeCalls: 2},
	}

	report, err := CheckValidity(results, receipts, touches, true)
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
}

func TestCheckValidity_CompleteNativeMismatchIsHardError(t *testing.T) {
	results := []txexec.TxResult{{Hash: common.HexToHash("0x1"), GasUsed: 50, Success: true}}
	receipts := types.Receipts{{CumulativeGasUsed: 50, Status: types.ReceiptStatusSuccessful}}
	touches := map[common.Address]dispatch.TouchCounter{
		common.HexToAddress("0x1"): {TotalCalls: 3, NativeCalls: 0},
	}

	_, err := CheckValidity(results, receipts, touches, true)
	require.Error(t, err)
}
