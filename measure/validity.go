package measure

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/evmc-sim/evmc-sim/dispatch"
	"github.com/evmc-sim/evmc-sim/evmcerr"
	"github.com/evmc-sim/evmc-sim/evmclog"
	"github.com/evmc-sim/evmc-sim/simulation/txexec"
)

// ValidityReport is the outcome of CheckValidity: a hard failure (if any)
// plus the soft warnings collected along the way. Bytecode can legitimately
// be replaced mid-block, which leaves one touch still served by the
// interpreter even though native coverage is otherwise complete; that is
// exactly the case the warn-vs-error split exists to tolerate.
type ValidityReport struct {
	Warnings []string
}

// CheckValidity compares simulated per-transaction results against their
// real chain receipts (gas used and success, a hard oracle — any mismatch
// is an error) and audits the touch map against nativeExpected:
//
//   - a per-account mismatch (with nativeExpected, an address with any call
//     not served natively; without it, an address with any native call) is
//     always a warning, never an error, since bytecode can be replaced
//     mid-block;
//   - the aggregate check is a hard error only when nativeExpected is true
//     and NOT ONE address shows any native call at all — a complete
//     mismatch indicating native dispatch never engaged, as opposed to a
//     partial mismatch mixed in with legitimate native touches.
func CheckValidity(results []txexec.TxResult, receipts types.Receipts, touches map[common.Address]dispatch.TouchCounter, nativeExpected bool) (ValidityReport, error) {
	var report ValidityReport
	log := evmclog.Root().With("measure")

	if len(results) != len(receipts) {
		return report, evmcerr.Wrap(evmcerr.KindValidation, "gas-oracle",
			fmt.Errorf("result count %d does not match receipt count %d", len(results), len(receipts)))
	}

	var prevCumGas uint64
	for i, res := range results {
		receipt := receipts[i]
		gasUsed := receipt.CumulativeGasUsed - prevCumGas
		prevCumGas = receipt.CumulativeGasUsed

		if res.GasUsed != gasUsed {
			return report, evmcerr.Wrap(evmcerr.KindValidation, "gas-oracle",
				fmt.Errorf("tx %s: simulated gas %d != receipt gas %d", res.Hash, res.GasUsed, gasUsed))
		}
		wantSuccess := receipt.Status == types.ReceiptStatusSuccessful
		if res.Success != wantSuccess {
			return report, evmcerr.Wrap(evmcerr.KindValidation, "success-oracle",
				fmt.Errorf("tx %s: simulated success %v != receipt status %v", res.Hash, res.Success, wantSuccess))
		}
	}

	if touches == nil {
		return report, nil
	}

	anyNative := false
	for addr, counter := range touches {
		if counter.NativeCalls > 0 {
			anyNative = true
		}
		mismatch := counter.NativeCalls < counter.TotalCalls
		if !nativeExpected {
			mismatch = counter.NativeCalls > 0
		}
		if mismatch {
			msg := fmt.Sprintf("address %s: %d/%d calls served natively", addr.Hex(), counter.NativeCalls, counter.TotalCalls)
			log.Warn(msg)
			report.Warnings = append(report.Warnings, msg)
		}
	}

	if nativeExpected && len(touches) > 0 && !anyNative {
		return report, evmcerr.Wrap(evmcerr.KindValidation, "touch-audit",
			fmt.Errorf("native dispatch was expected but no address was served natively"))
	}
	return report, nil
}
