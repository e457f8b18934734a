// Package guzzlers implements the gas-guzzler analyzer: it samples blocks,
// attributes gas usage (and the "deficit" of gas burned by sub-calls) to
// contract addresses, and ranks contracts by their net proportion of total
// gas spent across the sample.
package guzzlers

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/evmc-sim/evmc-sim/dispatch"
	"github.com/evmc-sim/evmc-sim/evmclog"
	"github.com/evmc-sim/evmc-sim/interp"
	"github.com/evmc-sim/evmc-sim/registry"
	"github.com/evmc-sim/evmc-sim/simulation"
	"github.com/evmc-sim/evmc-sim/stateprovider"
)

// Config parameterizes a sampling run over a historical block range.
type Config struct {
	Start      uint64
	End        uint64
	SampleSize int
	Seed       *uint64 // nil means non-deterministic
}

// ContractUsage aggregates one contract's gas footprint across the sample.
type ContractUsage struct {
	GasUsed    uint64
	Frequency  uint64
	GasDeficit uint64
	FirstBlock uint64
	LastBlock  uint64
}

func (u *ContractUsage) merge(o ContractUsage) {
	u.GasUsed += o.GasUsed
	u.Frequency += o.Frequency
	u.GasDeficit += o.GasDeficit
	if u.FirstBlock == 0 || (o.FirstBlock != 0 && o.FirstBlock < u.FirstBlock) {
		u.FirstBlock = o.FirstBlock
	}
	if o.LastBlock > u.LastBlock {
		u.LastBlock = o.LastBlock
	}
}

// sampleBlocks draws Config.SampleSize distinct block numbers uniformly at
// random from [Start, End) using a seeded partial Fisher-Yates. This departs
// deliberately from the original's "take first N, then shuffle" shortcut,
// which does not sample uniformly when SampleSize < range size; see
// DESIGN.md.
func (c Config) sampleBlocks() []uint64 {
	n := int(c.End - c.Start)
	if c.SampleSize > n {
		c.SampleSize = n
	}
	pool := make([]uint64, n)
	for i := range pool {
		pool[i] = c.Start + uint64(i)
	}

	var src rand.Source
	if c.Seed != nil {
		src = rand.NewPCG(*c.Seed, *c.Seed^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	r := rand.New(src)

	for i := 0; i < c.SampleSize; i++ {
		j := i + r.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:c.SampleSize]
}

// blockInspector tracks, for one block's replay, a call stack of currently
// executing bytecode addresses so that a sub-call's gas can be attributed
// to its parent as a "deficit": the gas the parent effectively lost to a
// callee instead of its own logic.
type blockInspector struct {
	mu    sync.Mutex
	stack []callFrame
	usage map[common.Address]*ContractUsage
	block uint64
}

type callFrame struct {
	addr     common.Address
	childGas uint64
}

func newBlockInspector(block uint64) *blockInspector {
	return &blockInspector{usage: make(map[common.Address]*ContractUsage), block: block}
}

func (b *blockInspector) entry(addr common.Address) *ContractUsage {
	u, ok := b.usage[addr]
	if !ok {
		u = &ContractUsage{FirstBlock: b.block, LastBlock: b.block}
		b.usage[addr] = u
	}
	return u
}

// install wraps host's frame handler with gas/frequency/deficit tracking.
// Attribution of a delegate-call's deficit goes to the delegating contract's
// own address (targetAddress), matching the original's
// `bytecode_address != target_address => parent = target_address` rule;
// a normal call's deficit goes to its caller.
func (b *blockInspector) install(host *interp.Host) func() {
	original := host.ExecuteFrame
	host.ExecuteFrame = func(f interp.Frame) (interp.FrameResult, error) {
		addr := f.EffectiveAddress()

		b.mu.Lock()
		b.stack = append(b.stack, callFrame{addr: addr})
		b.mu.Unlock()

		res, err := original(f)

		b.mu.Lock()
		b.stack = b.stack[:len(b.stack)-1]
		u := b.entry(addr)
		u.GasUsed += res.GasUsed
		u.Frequency++
		u.LastBlock = b.block

		if len(b.stack) > 0 {
			var parent common.Address
			if f.IsDelegate {
				parent = f.TargetAddress
			} else {
				parent = f.Caller
			}
			if parent != addr {
				b.entry(parent).GasDeficit += res.GasUsed
			}
		}
		b.mu.Unlock()

		return res, err
	}
	return func() { host.ExecuteFrame = original }
}

// FindGasGuzzlers samples cfg.SampleSize blocks from [cfg.Start, cfg.End),
// replays each in parallel, and merges per-block usage into one report
// ranked by bytecode rather than by address: a gas-guzzler report exists to
// pick which bytecodes to compile, so every address backed by the same
// bytecode (proxies, clone factories) must be summed into a single entry.
func FindGasGuzzlers(ctx context.Context, provider stateprovider.Provider, reg *registry.Registry, cfg Config) (Report, error) {
	blocks := cfg.sampleBlocks()

	var mu sync.Mutex
	merged := make(map[common.Address]*ContractUsage)

	g, gctx := errgroup.WithContext(ctx)
	for _, block := range blocks {
		block := block
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			usage, err := analyzeBlock(provider, reg, block)
			if err != nil {
				return err
			}
			mu.Lock()
			for addr, u := range usage {
				dst, ok := merged[addr]
				if !ok {
					dst = &ContractUsage{}
					merged[addr] = dst
				}
				dst.merge(*u)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	groups, err := rekeyByBytecode(provider, merged)
	if err != nil {
		return Report{}, err
	}
	return buildReport(groups), nil
}

// bytecodeGroup aggregates ContractUsage across every address sharing one
// distinct bytecode, plus the address seen most frequently under that
// bytecode (used as its Entry's representative address).
type bytecodeGroup struct {
	usage   ContractUsage
	repAddr common.Address
	repFreq uint64
}

// rekeyByBytecode resolves each address in usage to its code as of the
// latest known block and merges usage across every address sharing that
// code. An address whose code can't be resolved is dropped with a warning,
// rather than failing the whole report.
func rekeyByBytecode(provider stateprovider.Provider, usage map[common.Address]*ContractUsage) (map[string]*bytecodeGroup, error) {
	latest := provider.Latest()
	groups := make(map[string]*bytecodeGroup)
	for addr, u := range usage {
		acc, err := provider.Account(latest, addr)
		if err != nil {
			return nil, err
		}
		if len(acc.Code) == 0 {
			evmclog.Warn("gas-guzzler analysis: no code found for contract", "address", addr)
			continue
		}
		key := string(acc.Code)
		g, ok := groups[key]
		if !ok {
			g = &bytecodeGroup{}
			groups[key] = g
		}
		g.usage.merge(*u)
		if u.Frequency > g.repFreq {
			g.repFreq = u.Frequency
			g.repAddr = addr
		}
	}
	return groups, nil
}

// analyzeBlock replays every transaction in block and returns per-address
// usage for that block alone.
func analyzeBlock(provider stateprovider.Provider, reg *registry.Registry, block uint64) (map[common.Address]*ContractUsage, error) {
	insp := newBlockInspector(block)

	ctx := dispatch.NewContext(reg, false)
	builder := simulation.NewBuilder().WithStateProvider(provider).WithExtCtx(ctx).
		WithFallback(func(f interp.Frame) (interp.FrameResult, error) {
			return interp.FrameResult{Success: true}, nil
		})
	sim, err := builder.IntoBlockSim(block, nil)
	if err != nil {
		return nil, err
	}
	restore := insp.install(sim.Host())
	_, err = sim.Run()
	restore()
	if err != nil {
		return nil, err
	}
	return insp.usage, nil
}
