package simulation

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/evmc-sim/evmc-sim/dispatch"
	"github.com/evmc-sim/evmc-sim/interp"
	"github.com/evmc-sim/evmc-sim/stateprovider"
)

// Builder assembles Simulations. Provider and ExtCtx are required; call
// Into{Call,Tx,Block}Sim only after both have been set.
type Builder struct {
	provider stateprovider.Provider
	extCtx   *dispatch.Context
	fallback interp.FrameHandler
}

// NewBuilder starts an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// WithStateProvider sets the required historical-state reader.
func (b *Builder) WithStateProvider(p stateprovider.Provider) *Builder {
	b.provider = p
	return b
}

// WithExtCtx sets the required dispatch context (compiled-function registry
// plus optional touch tracking) that every frame is executed through.
func (b *Builder) WithExtCtx(ctx *dispatch.Context) *Builder {
	b.extCtx = ctx
	return b
}

// WithFallback overrides the interpreted fallback used for bytecode hashes
// the registry does not cover. Defaults to an always-revert stub (an
// unsuccessful result with no error and no gas reported).
func (b *Builder) WithFallback(fn interp.FrameHandler) *Builder {
	b.fallback = fn
	return b
}

func (b *Builder) validate() error {
	if b.provider == nil {
		return fmt.Errorf("simulation builder: state provider is required")
	}
	if b.extCtx == nil {
		return fmt.Errorf("simulation builder: ext ctx is required")
	}
	return nil
}

func (b *Builder) newHost() *interp.Host {
	fallback := b.fallback
	if fallback == nil {
		fallback = func(f interp.Frame) (interp.FrameResult, error) {
			return interp.FrameResult{Success: false}, nil
		}
	}
	host := interp.NewHost(fallback)
	dispatch.Install(host, b.extCtx)
	return host
}

// syntheticCallAddress is the fixed sender used for call simulations, ported
// from the original's "0x0101...01" convention.
var syntheticCallAddress = common.HexToAddress("0x0101010101010101010101010101010101010101")

// IntoCallSim builds a Simulation that runs bytecode directly against input,
// outside of any real block or transaction context.
func (b *Builder) IntoCallSim(bytecode, input []byte, gasLimit uint64) (*Simulation, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	db := NewCacheDB(b.provider, b.provider.Latest())
	db.SetCode(syntheticCallAddress, bytecode)

	frame := interp.Frame{
		BytecodeAddress: syntheticCallAddress,
		TargetAddress:   syntheticCallAddress,
		Caller:          syntheticCallAddress,
		BytecodeHash:    codeHashOf(bytecode),
		Input:           input,
		GasLimit:        gasLimit,
	}

	host := b.newHost()
	return &Simulation{
		db:        db,
		host:      host,
		callFrame: &frame,
	}, nil
}

// IntoTxSim builds a Simulation that replays a single historical transaction
// in its original block. Every strictly earlier transaction in that block is
// executed first, on each Run, and its result is not returned.
func (b *Builder) IntoTxSim(txHash common.Hash) (*Simulation, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	tx, block, index, err := b.provider.Transaction(txHash)
	if err != nil {
		return nil, err
	}
	header, err := b.provider.Header(block)
	if err != nil {
		return nil, err
	}
	blockTxs, err := b.provider.BlockTransactions(block)
	if err != nil {
		return nil, err
	}
	if int(index) > len(blockTxs) {
		return nil, fmt.Errorf("tx index %d out of range for block %d", index, block)
	}

	db := NewCacheDB(b.provider, block-1)
	signer := types.LatestSignerForChainID(b.provider.ChainID())

	return &Simulation{
		db:       db,
		host:     b.newHost(),
		header:   header,
		signer:   signer,
		pre:      blockTxs[:index],
		execute:  types.Transactions{tx},
	}, nil
}

// IntoBlockSim builds a Simulation over an entire block, or a BlockPart
// fraction of it when part is non-nil.
func (b *Builder) IntoBlockSim(block uint64, part *BlockPart) (*Simulation, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	header, err := b.provider.Header(block)
	if err != nil {
		return nil, err
	}
	blockTxs, err := b.provider.BlockTransactions(block)
	if err != nil {
		return nil, err
	}

	execRange, preRange := part.Split(len(blockTxs))
	db := NewCacheDB(b.provider, block-1)
	signer := types.LatestSignerForChainID(b.provider.ChainID())

	return &Simulation{
		db:      db,
		host:    b.newHost(),
		header:  header,
		signer:  signer,
		pre:     blockTxs[preRange[0]:preRange[1]],
		execute: blockTxs[execRange[0]:execRange[1]],
	}, nil
}

func codeHashOf(code []byte) common.Hash {
	if len(code) == 0 {
		return types.EmptyCodeHash
	}
	return crypto.Keccak256Hash(code)
}
