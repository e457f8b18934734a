// Package touches implements the bytecode-touch analyzer: replay a set of
// transactions, record every address whose bytecode ran, and resolve those
// addresses to their code afterward.
package touches

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmc-sim/evmc-sim/dispatch"
	"github.com/evmc-sim/evmc-sim/evmclog"
	"github.com/evmc-sim/evmc-sim/registry"
	"github.com/evmc-sim/evmc-sim/simulation"
	"github.com/evmc-sim/evmc-sim/stateprovider"
)

// FindTouchedBytecode replays each transaction in txHashes and returns the
// deduplicated set of bytecode bodies that ran during any of them.
// Addresses with no code by the time replay finishes (created and
// self-destructed mid-block) are skipped with a warning, not an error.
func FindTouchedBytecode(provider stateprovider.Provider, reg *registry.Registry, txHashes []common.Hash) ([][]byte, error) {
	seen := make(map[common.Address]struct{})
	log := evmclog.Root().With("touches")

	for _, txHash := range txHashes {
		// A fresh touch map per transaction, mirroring the original's own
		// per-tx BytecodeTouchInspector::default().
		ctx := dispatch.NewContext(reg, true)
		builder := simulation.NewBuilder().WithStateProvider(provider).WithExtCtx(ctx)
		sim, err := builder.IntoTxSim(txHash)
		if err != nil {
			return nil, err
		}
		if _, err := sim.Run(); err != nil {
			return nil, err
		}
		for addr := range ctx.Touches.Snapshot() {
			seen[addr] = struct{}{}
		}
	}

	dedup := make(map[string][]byte)
	latest := provider.Latest()
	for addr := range seen {
		acc, err := provider.Account(latest, addr)
		if err != nil {
			return nil, err
		}
		if len(acc.Code) == 0 {
			log.Warn("code for touched contract not found", "address", addr.Hex())
			continue
		}
		dedup[string(acc.Code)] = acc.Code
	}

	out := make([][]byte, 0, len(dedup))
	for _, code := range dedup {
		out = append(out, code)
	}
	return out, nil
}
