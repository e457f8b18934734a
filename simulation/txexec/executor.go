// Package txexec executes one transaction against a simulation's CacheDB
// and interpreter host, the way a block processor applies each transaction
// in sequence while leaving the final transaction's state mutation
// uncommitted so the simulation runner's snapshot/restore stays
// authoritative.
package txexec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/evmc-sim/evmc-sim/interp"
)

// DB is the minimal state surface a transaction execution needs; satisfied
// by *simulation.CacheDB without introducing an import cycle.
type DB interface {
	GetBalance(common.Address) (*uint256.Int, error)
	SetBalance(common.Address, *uint256.Int)
	GetNonce(common.Address) (uint64, error)
	SetNonce(common.Address, uint64)
	GetCode(common.Address) ([]byte, error)
}

// TxResult is the outcome of executing one transaction.
type TxResult struct {
	Hash    common.Hash
	GasUsed uint64
	Success bool
	Output  []byte
}

// Executor applies transactions to a DB via an interpreter host.
type Executor struct {
	DB       DB
	Host     *interp.Host
	BaseFee  *big.Int
	Coinbase common.Address
}

// Apply executes tx, charges gas from the sender, credits the effective tip
// to the coinbase, and returns the frame result translated into a TxResult.
// It does not decide whether to persist the DB mutation; callers (the
// simulation runner) own that via CacheDB.Clone/Commit.
func (e *Executor) Apply(tx *types.Transaction, signer types.Signer) (TxResult, error) {
	from, err := types.Sender(signer, tx)
	if err != nil {
		return TxResult{}, err
	}

	nonce, err := e.DB.GetNonce(from)
	if err != nil {
		return TxResult{}, err
	}
	e.DB.SetNonce(from, nonce+1)

	gasPrice := effectiveGasPrice(tx, e.BaseFee)
	cost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.Gas()))
	cost.Add(cost, tx.Value())

	bal, err := e.DB.GetBalance(from)
	if err != nil {
		return TxResult{}, err
	}
	costU, overflow := uint256.FromBig(cost)
	if overflow {
		bal = uint256.NewInt(0)
	} else if bal.Cmp(costU) >= 0 {
		bal = new(uint256.Int).Sub(bal, costU)
	} else {
		bal = uint256.NewInt(0)
	}
	e.DB.SetBalance(from, bal)

	to := common.Address{}
	bytecodeAddr := common.Address{}
	if tx.To() != nil {
		to = *tx.To()
		bytecodeAddr = to
	}

	frame := interp.Frame{
		BytecodeAddress: bytecodeAddr,
		TargetAddress:   to,
		Caller:          from,
		Input:           tx.Data(),
		GasLimit:        tx.Gas(),
	}
	if code, err := e.DB.GetCode(to); err == nil && len(code) > 0 {
		frame.BytecodeHash = codeHash(code)
	}

	res, err := e.Host.ExecuteFrame(frame)
	if err != nil {
		return TxResult{Hash: tx.Hash(), Success: false}, err
	}

	gasUsed := res.GasUsed
	if gasUsed == 0 {
		gasUsed = tx.Gas()
	}
	refund := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.Gas()-gasUsed))
	refundU, _ := uint256.FromBig(refund)
	bal, _ = e.DB.GetBalance(from)
	e.DB.SetBalance(from, new(uint256.Int).Add(bal, refundU))

	tip := effectiveTip(tx, e.BaseFee)
	fee := new(big.Int).Mul(tip, new(big.Int).SetUint64(gasUsed))
	feeU, _ := uint256.FromBig(fee)
	coinbaseBal, err := e.DB.GetBalance(e.Coinbase)
	if err == nil {
		e.DB.SetBalance(e.Coinbase, new(uint256.Int).Add(coinbaseBal, feeU))
	}

	return TxResult{Hash: tx.Hash(), GasUsed: gasUsed, Success: res.Success, Output: res.Output}, nil
}

func effectiveGasPrice(tx *types.Transaction, baseFee *big.Int) *big.Int {
	if tx.Type() == types.DynamicFeeTxType || tx.Type() == types.BlobTxType {
		tip := tx.GasTipCap()
		feeCap := tx.GasFeeCap()
		price := new(big.Int).Add(baseFee, tip)
		if price.Cmp(feeCap) > 0 {
			price = feeCap
		}
		return price
	}
	return tx.GasPrice()
}

func effectiveTip(tx *types.Transaction, baseFee *big.Int) *big.Int {
	price := effectiveGasPrice(tx, baseFee)
	tip := new(big.Int).Sub(price, baseFee)
	if tip.Sign() < 0 {
		return big.NewInt(0)
	}
	return tip
}

func codeHash(code []byte) common.Hash {
	return crypto.Keccak256Hash(code)
}
