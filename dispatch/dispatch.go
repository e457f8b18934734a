// Package dispatch replaces an interpreter host's frame-execution handler
// with one that looks up compiled native functions by bytecode hash before
// falling back to interpretation, and optionally records which addresses
// were served natively.
package dispatch

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/evmc-sim/evmc-sim/interp"
	"github.com/evmc-sim/evmc-sim/registry"
)

// TouchCounter tracks how many times an address was invoked in total versus
// how many of those invocations were served by a native compiled function.
type TouchCounter struct {
	TotalCalls  uint64
	NativeCalls uint64
}

// TouchMap is the per-address touch accounting oracle: nil unless a Context
// was constructed with touch tracking enabled.
type TouchMap struct {
	mu sync.Mutex
	m  map[common.Address]*TouchCounter
}

// NewTouchMap returns an empty, ready-to-use TouchMap.
func NewTouchMap() *TouchMap {
	return &TouchMap{m: make(map[common.Address]*TouchCounter)}
}

func (t *TouchMap) record(addr common.Address, native bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.m[addr]
	if !ok {
		c = &TouchCounter{}
		t.m[addr] = c
	}
	c.TotalCalls++
	if native {
		c.NativeCalls++
	}
}

// Snapshot returns a copy of the current per-address counters.
func (t *TouchMap) Snapshot() map[common.Address]TouchCounter {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[common.Address]TouchCounter, len(t.m))
	for a, c := range t.m {
		out[a] = *c
	}
	return out
}

// Context binds a compiled-function Registry to a dispatch installation,
// along with optional touch accounting.
type Context struct {
	Registry *registry.Registry
	Touches  *TouchMap
}

// NewContext builds a Context. Pass trackTouches=true to enable the touch
// map oracle used by measure.CheckValidity.
func NewContext(reg *registry.Registry, trackTouches bool) *Context {
	c := &Context{Registry: reg}
	if trackTouches {
		c.Touches = NewTouchMap()
	}
	return c
}

// Install replaces host's ExecuteFrame handler with one that consults ctx's
// registry first. The original handler is kept as the interpreted
// fallback for any bytecode hash the registry does not cover. Returns a
// restore function that reinstates the original handler.
func Install(host *interp.Host, ctx *Context) (restore func()) {
	original := host.ExecuteFrame
	host.ExecuteFrame = func(f interp.Frame) (interp.FrameResult, error) {
		handle, ok := ctx.Registry.Lookup(f.BytecodeHash)
		if ctx.Touches != nil {
			ctx.Touches.record(f.EffectiveAddress(), ok)
		}
		if !ok {
			return original(f)
		}
		out, gasLeft, err := handle.Fn.Call(f.Input, f.GasLimit)
		if err != nil {
			return interp.FrameResult{Success: false}, err
		}
		return interp.FrameResult{
			Output:  out,
			GasUsed: f.GasLimit - gasLeft,
			Success: true,
		}, nil
	}
	return func() { host.ExecuteFrame = original }
}
