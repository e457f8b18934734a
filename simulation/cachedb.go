// Package simulation implements the simulation builder and runner: a
// layered in-memory overlay over a historical-state Provider, and the
// staged builder that assembles call/tx/block simulations from it.
package simulation

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/evmc-sim/evmc-sim/stateprovider"
)

// BatchKey identifies an (address, storage slot) pair to prime into a
// CacheDB ahead of execution. An all-zero Slot means "account only".
type BatchKey struct {
	Address common.Address
	Slot    common.Hash
}

// CacheDB is an immutable historical view (a stateprovider.Provider pinned
// at one block) layered under a mutable in-memory overlay, the pending
// writes produced by executing transactions against it. Runs against a
// CacheDB are made repeatable by cloning it before each run and discarding
// the clone afterwards (see Simulation.Run).
type CacheDB struct {
	provider stateprovider.Provider
	block    uint64

	mu       sync.RWMutex
	balances map[common.Address]*uint256.Int
	nonces   map[common.Address]uint64
	code     map[common.Address][]byte
	storage  map[common.Address]map[common.Hash]common.Hash

	accountMisses atomic64
	storageMisses atomic64
}

// NewCacheDB pins provider at block and returns an overlay with no pending
// writes.
func NewCacheDB(provider stateprovider.Provider, block uint64) *CacheDB {
	return &CacheDB{
		provider: provider,
		block:    block,
		balances: make(map[common.Address]*uint256.Int),
		nonces:   make(map[common.Address]uint64),
		code:     make(map[common.Address][]byte),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
	}
}

// GetBalance returns an address's balance, overlay first, falling through
// to the pinned historical view.
func (c *CacheDB) GetBalance(addr common.Address) (*uint256.Int, error) {
	c.mu.RLock()
	if b, ok := c.balances[addr]; ok {
		c.mu.RUnlock()
		return b, nil
	}
	c.mu.RUnlock()
	c.accountMisses.add(1)
	acc, err := c.provider.Account(c.block, addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// SetBalance records a new balance in the overlay.
func (c *CacheDB) SetBalance(addr common.Address, bal *uint256.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[addr] = bal
}

// GetNonce returns an address's nonce, overlay first.
func (c *CacheDB) GetNonce(addr common.Address) (uint64, error) {
	c.mu.RLock()
	if n, ok := c.nonces[addr]; ok {
		c.mu.RUnlock()
		return n, nil
	}
	c.mu.RUnlock()
	c.accountMisses.add(1)
	acc, err := c.provider.Account(c.block, addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// SetNonce records a new nonce in the overlay.
func (c *CacheDB) SetNonce(addr common.Address, nonce uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonces[addr] = nonce
}

// GetCode returns an address's code, overlay first.
func (c *CacheDB) GetCode(addr common.Address) ([]byte, error) {
	c.mu.RLock()
	if code, ok := c.code[addr]; ok {
		c.mu.RUnlock()
		return code, nil
	}
	c.mu.RUnlock()
	c.accountMisses.add(1)
	acc, err := c.provider.Account(c.block, addr)
	if err != nil {
		return nil, err
	}
	return acc.Code, nil
}

// SetCode records new code in the overlay.
func (c *CacheDB) SetCode(addr common.Address, code []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = code
}

// GetStorage returns a storage slot's value, overlay first.
func (c *CacheDB) GetStorage(addr common.Address, slot common.Hash) (common.Hash, error) {
	c.mu.RLock()
	if m, ok := c.storage[addr]; ok {
		if v, ok := m[slot]; ok {
			c.mu.RUnlock()
			return v, nil
		}
	}
	c.mu.RUnlock()
	c.storageMisses.add(1)
	return c.provider.Storage(c.block, addr, slot)
}

// SetStorage records a new storage value in the overlay.
func (c *CacheDB) SetStorage(addr common.Address, slot, value common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storage[addr] == nil {
		c.storage[addr] = make(map[common.Hash]common.Hash)
	}
	c.storage[addr][slot] = value
}

// Prefetch best-effort primes the overlay's underlying provider reads for
// the given keys, ahead of execution, so that later reads hit without
// blocking on a slower historical lookup. Unknown accounts/slots are
// silently ignored; a no-op for an empty slice.
func (c *CacheDB) Prefetch(keys []BatchKey) {
	for _, k := range keys {
		if acc, err := c.provider.Account(c.block, k.Address); err == nil {
			c.mu.Lock()
			if _, ok := c.balances[k.Address]; !ok {
				c.balances[k.Address] = acc.Balance
			}
			if _, ok := c.nonces[k.Address]; !ok {
				c.nonces[k.Address] = acc.Nonce
			}
			if _, ok := c.code[k.Address]; !ok {
				c.code[k.Address] = acc.Code
			}
			c.mu.Unlock()
		}
		if (k.Slot != common.Hash{}) {
			if v, err := c.provider.Storage(c.block, k.Address, k.Slot); err == nil {
				c.SetStorage(k.Address, k.Slot, v)
			}
		}
	}
}

// MissCounters returns (accountMisses, storageMisses) since construction or
// the last ResetMissCounters call.
func (c *CacheDB) MissCounters() (int64, int64) {
	return c.accountMisses.get(), c.storageMisses.get()
}

// ResetMissCounters zeros the miss counters.
func (c *CacheDB) ResetMissCounters() {
	c.accountMisses.reset()
	c.storageMisses.reset()
}

// Clone returns a deep copy of the overlay (the historical view underneath
// remains shared, since it is read-only), used to make a simulation run
// repeatable: run against the clone, then discard it.
func (c *CacheDB) Clone() *CacheDB {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &CacheDB{
		provider: c.provider,
		block:    c.block,
		balances: make(map[common.Address]*uint256.Int, len(c.balances)),
		nonces:   make(map[common.Address]uint64, len(c.nonces)),
		code:     make(map[common.Address][]byte, len(c.code)),
		storage:  make(map[common.Address]map[common.Hash]common.Hash, len(c.storage)),
	}
	for a, b := range c.balances {
		clone.balances[a] = b
	}
	for a, n := range c.nonces {
		clone.nonces[a] = n
	}
	for a, code := range c.code {
		clone.code[a] = code
	}
	for a, m := range c.storage {
		cm := make(map[common.Hash]common.Hash, len(m))
		for s, v := range m {
			cm[s] = v
		}
		clone.storage[a] = cm
	}
	return clone
}

// Commit merges a clone's overlay back into parent, overwriting parent's
// entries, so subsequent look-ups on parent observe the merged state.
func (clone *CacheDB) Commit(parent *CacheDB) {
	clone.mu.RLock()
	defer clone.mu.RUnlock()

	parent.mu.Lock()
	defer parent.mu.Unlock()
	for a, b := range clone.balances {
		parent.balances[a] = b
	}
	for a, n := range clone.nonces {
		parent.nonces[a] = n
	}
	for a, code := range clone.code {
		parent.code[a] = code
	}
	for a, m := range clone.storage {
		if parent.storage[a] == nil {
			parent.storage[a] = make(map[common.Hash]common.Hash, len(m))
		}
		for s, v := range m {
			parent.storage[a][s] = v
		}
	}
}
