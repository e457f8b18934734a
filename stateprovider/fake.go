package stateprovider

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
)

type accountKey struct {
	block uint64
	addr  common.Address
}

// FakeProvider is an in-memory Provider test double. Account, storage,
// header, block-transaction and receipt lookups are keyed by block number so
// tests can model state evolving across blocks without a real chain
// database; Transaction is keyed by transaction hash.
type FakeProvider struct {
	mu       sync.RWMutex
	chainID  *big.Int
	accounts map[uint64]map[common.Address]Account
	storage  map[uint64]map[common.Address]map[common.Hash]common.Hash
	headers  map[uint64]*types.Header
	txs      map[common.Hash]txLoc
	blockTxs map[uint64]types.Transactions
	receipts map[uint64]types.Receipts
	latest   uint64

	// accountCache fronts Account lookups the way a real chain database
	// adapter would front trie reads; bounded so long-running analyzer
	// sweeps over many blocks don't grow memory unboundedly.
	accountCache *lru.Cache[accountKey, Account]
}

type txLoc struct {
	tx    *types.Transaction
	block uint64
	index uint
}

// accountCacheSize bounds the in-memory account lookup cache.
const accountCacheSize = 4096

// NewFakeProvider builds an empty FakeProvider for the given chain id.
func NewFakeProvider(chainID *big.Int) *FakeProvider {
	cache, _ := lru.New[accountKey, Account](accountCacheSize)
	return &FakeProvider{
		chainID:      chainID,
		accounts:     make(map[uint64]map[common.Address]Account),
		storage:      make(map[uint64]map[common.Address]map[common.Hash]common.Hash),
		headers:      make(map[uint64]*types.Header),
		txs:          make(map[common.Hash]txLoc),
		blockTxs:     make(map[uint64]types.Transactions),
		receipts:     make(map[uint64]types.Receipts),
		accountCache: cache,
	}
}

// SetAccount registers account state as of block.
func (p *FakeProvider) SetAccount(block uint64, addr common.Address, acc Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accounts[block] == nil {
		p.accounts[block] = make(map[common.Address]Account)
	}
	p.accounts[block][addr] = acc
	p.accountCache.Add(accountKey{block: block, addr: addr}, acc)
	if block > p.latest {
		p.latest = block
	}
}

// SetStorage registers a storage slot value as of block.
func (p *FakeProvider) SetStorage(block uint64, addr common.Address, slot, value common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.storage[block] == nil {
		p.storage[block] = make(map[common.Address]map[common.Hash]common.Hash)
	}
	if p.storage[block][addr] == nil {
		p.storage[block][addr] = make(map[common.Hash]common.Hash)
	}
	p.storage[block][addr][slot] = value
}

// SetHeader registers a block header.
func (p *FakeProvider) SetHeader(block uint64, h *types.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headers[block] = h
	if block > p.latest {
		p.latest = block
	}
}

// SetBlock registers the transactions and receipts belonging to block, and
// indexes each transaction for Transaction() lookups.
func (p *FakeProvider) SetBlock(block uint64, txs types.Transactions, receipts types.Receipts) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockTxs[block] = txs
	p.receipts[block] = receipts
	for i, tx := range txs {
		p.txs[tx.Hash()] = txLoc{tx: tx, block: block, index: uint(i)}
	}
	if block > p.latest {
		p.latest = block
	}
}

func (p *FakeProvider) Account(block uint64, addr common.Address) (Account, error) {
	key := accountKey{block: block, addr: addr}
	p.mu.RLock()
	if acc, ok := p.accountCache.Get(key); ok {
		p.mu.RUnlock()
		return acc, nil
	}
	var (
		acc   Account
		found bool
	)
	if m, ok := p.accounts[block]; ok {
		acc, found = m[addr]
	}
	p.mu.RUnlock()
	if !found {
		acc = Account{Balance: uint256.NewInt(0)}
	}
	p.mu.Lock()
	p.accountCache.Add(key, acc)
	p.mu.Unlock()
	return acc, nil
}

func (p *FakeProvider) Storage(block uint64, addr common.Address, slot common.Hash) (common.Hash, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if m, ok := p.storage[block]; ok {
		if s, ok := m[addr]; ok {
			return s[slot], nil
		}
	}
	return common.Hash{}, nil
}

func (p *FakeProvider) Header(block uint64) (*types.Header, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.headers[block]
	if !ok {
		return nil, fmt.Errorf("header not found for block %d", block)
	}
	return h, nil
}

func (p *FakeProvider) Transaction(hash common.Hash) (*types.Transaction, uint64, uint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	loc, ok := p.txs[hash]
	if !ok {
		return nil, 0, 0, fmt.Errorf("transaction not found: %s", hash)
	}
	return loc.tx, loc.block, loc.index, nil
}

func (p *FakeProvider) BlockTransactions(block uint64) (types.Transactions, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.blockTxs[block], nil
}

func (p *FakeProvider) Receipts(block uint64) (types.Receipts, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.receipts[block], nil
}

func (p *FakeProvider) ChainID() *big.Int { return p.chainID }

func (p *FakeProvider) Latest() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}
