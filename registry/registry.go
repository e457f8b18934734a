// Package registry holds the immutable-after-construction map from bytecode
// hash to compiled function handle, shared read-only across simulation
// workers.
package registry

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmc-sim/evmc-sim/compiler"
)

// Anchor keeps the resource a FunctionHandle's FuncPtr depends on alive.
// Implementations are NoAnchor and the loader package's shared-library
// anchor; there is no anchor type for JIT-compiled functions.
type Anchor interface {
	// Close releases the anchor's resources. Safe to call multiple times.
	Close() error
}

// NoAnchor is used for handles that own no external resource (e.g. the
// fakeBackend's pure-Go closures).
type NoAnchor struct{}

func (NoAnchor) Close() error { return nil }

// FunctionHandle pairs a compiled function with the anchor that keeps it
// callable. Callers must not let the FuncPtr outlive the anchor.
type FunctionHandle struct {
	Hash   common.Hash
	Fn     compiler.FuncPtr
	Anchor Anchor
}

// Registry is a read-mostly, single-writer map from bytecode hash to
// FunctionHandle. Construction builds the full map once; Clone shares the
// same underlying map the way the original's Arc<FxHashMap<...>> clone does.
type Registry struct {
	m     atomic.Pointer[map[common.Hash]FunctionHandle]
	cache *fastcache.Cache // optional hot-path front cache for very large registries
}

// New builds a Registry from a fixed set of handles.
func New(handles []FunctionHandle) *Registry {
	m := make(map[common.Hash]FunctionHandle, len(handles))
	for _, h := range handles {
		m[h.Hash] = h
	}
	r := &Registry{}
	r.m.Store(&m)
	return r
}

// WithCache enables a fastcache front cache of the given byte size, useful
// when the registry holds so many entries that map lookups show up in
// profiles; encoded entries are just the hash bytes themselves (presence
// check), the FuncPtr lookup still goes through the underlying map.
func (r *Registry) WithCache(maxBytes int) *Registry {
	r.cache = fastcache.New(maxBytes)
	for h := range *r.m.Load() {
		r.cache.Set(h[:], nil)
	}
	return r
}

// Lookup resolves hash to a FunctionHandle. The boolean reports presence.
func (r *Registry) Lookup(hash common.Hash) (FunctionHandle, bool) {
	if r.cache != nil {
		if !r.cache.Has(hash[:]) {
			return FunctionHandle{}, false
		}
	}
	m := *r.m.Load()
	h, ok := m[hash]
	return h, ok
}

// Len reports the number of registered handles.
func (r *Registry) Len() int {
	return len(*r.m.Load())
}

// Clone returns a Registry sharing the same underlying map; cheap, since the
// map is never mutated after construction.
func (r *Registry) Clone() *Registry {
	clone := &Registry{cache: r.cache}
	clone.m.Store(r.m.Load())
	return clone
}

// Close releases every handle's anchor. Safe to call once per Registry
// (shared clones should only be closed through their original owner).
func (r *Registry) Close() error {
	var firstErr error
	for _, h := range *r.m.Load() {
		if h.Anchor == nil {
			continue
		}
		if err := h.Anchor.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
