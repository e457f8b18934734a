// Package stateprovider defines the historical-state reader collaborator
// (an external system, e.g. a chain database, in production) and an
// in-memory test double used throughout this module's own tests.
package stateprovider

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Account is the subset of account state a simulation needs to read.
type Account struct {
	Balance  *uint256.Int
	Nonce    uint64
	Code     []byte
	CodeHash common.Hash
}

// Provider is the historical-state reader: given a block number, resolve
// account state, storage, and block/transaction metadata as of that block.
// Production implementations read from a real chain database; this module
// treats it purely as an external collaborator.
type Provider interface {
	Account(block uint64, addr common.Address) (Account, error)
	Storage(block uint64, addr common.Address, slot common.Hash) (common.Hash, error)
	Header(block uint64) (*types.Header, error)
	Transaction(hash common.Hash) (tx *types.Transaction, block uint64, index uint, err error)
	BlockTransactions(block uint64) (types.Transactions, error)
	Receipts(block uint64) (types.Receipts, error)
	ChainID() *big.Int
	Latest() uint64
}
