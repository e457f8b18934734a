package simulation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/evmc-sim/evmc-sim/interp"
	"github.com/evmc-sim/evmc-sim/simulation/txexec"
)

// Simulation is a ready-to-run scenario produced by Builder: either a single
// synthetic call, or a sequence of pre-applied transactions followed by a
// sequence of executed ones.
type Simulation struct {
	db     *CacheDB
	host   *interp.Host
	header *types.Header
	signer types.Signer

	// call-sim path
	callFrame *interp.Frame

	// tx/block-sim path
	pre     types.Transactions
	execute types.Transactions
}

// Run executes the simulation against a clone of its CacheDB, so that
// calling Run multiple times always starts from the same state and never
// mutates the Simulation's own overlay. The clone is discarded once Run
// returns; the state it ends in is not exposed.
func (s *Simulation) Run() ([]txexec.TxResult, error) {
	// working is discarded at the end of this call; s.db is never mutated,
	// which is what makes repeated Run calls repeatable and leaves the
	// final transaction's state change uncommitted to the simulation.
	working := s.db.Clone()

	if s.callFrame != nil {
		res, err := s.host.ExecuteFrame(*s.callFrame)
		if err != nil {
			return nil, err
		}
		return []txexec.TxResult{{GasUsed: res.GasUsed, Success: res.Success, Output: res.Output}}, nil
	}

	exec := &txexec.Executor{DB: working, Host: s.host, BaseFee: s.header.BaseFee, Coinbase: s.header.Coinbase}
	if exec.BaseFee == nil {
		exec.BaseFee = bigZero()
	}

	for _, tx := range s.pre {
		if _, err := exec.Apply(tx, s.signer); err != nil {
			return nil, err
		}
	}

	results := make([]txexec.TxResult, 0, len(s.execute))
	for _, tx := range s.execute {
		res, err := exec.Apply(tx, s.signer)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// DB returns the simulation's own (unmodified by Run) CacheDB overlay.
func (s *Simulation) DB() *CacheDB { return s.db }

// Host returns the simulation's interpreter host, letting analyzers install
// additional frame-handler instrumentation around the dispatch-installed
// handler (see analysis/guzzlers).
func (s *Simulation) Host() *interp.Host { return s.host }

func bigZero() *big.Int { return new(big.Int) }
