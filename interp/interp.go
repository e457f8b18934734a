// Package interp is a deliberately minimal reference interpreter and host,
// just enough to prove the dispatch-replacement contract end-to-end. It is
// NOT a general-purpose EVM (that is explicitly out of scope); it exists so
// that dispatch.Install has something real to install into.
package interp

import "github.com/ethereum/go-ethereum/common"

// Frame describes one call frame about to be executed.
type Frame struct {
	// BytecodeAddress is the address whose code is being run (the contract
	// that owns the bytecode).
	BytecodeAddress common.Address
	// TargetAddress is the address the call was made to. Equal to
	// BytecodeAddress except inside a delegatecall, where code borrowed
	// from BytecodeAddress executes "as" TargetAddress.
	TargetAddress common.Address
	// Caller is the address that initiated this call.
	Caller common.Address
	// BytecodeHash identifies the running code.
	BytecodeHash common.Hash
	Input        []byte
	GasLimit     uint64
	IsDelegate   bool
}

// EffectiveAddress is the address gas/touch accounting attributes this
// frame to: the bytecode address when one is set (for a delegate-call, the
// address the borrowed code belongs to), otherwise the target address.
func (f Frame) EffectiveAddress() common.Address {
	if f.BytecodeAddress != (common.Address{}) {
		return f.BytecodeAddress
	}
	return f.TargetAddress
}

// FrameResult is the outcome of executing one frame.
type FrameResult struct {
	Output   []byte
	GasUsed  uint64
	Success  bool
}

// FrameHandler executes a single call frame and returns its result.
type FrameHandler func(Frame) (FrameResult, error)

// Host is the interpreter whose frame dispatch can be replaced. A real EVM
// host would additionally carry a full opcode loop, stack, memory, storage
// access; this reference host only needs the single hook point that
// dispatch.Install replaces.
type Host struct {
	// ExecuteFrame is called for every frame. Defaults to an interpreted
	// fallback; dispatch.Install wraps it to try a compiled function first.
	ExecuteFrame FrameHandler
}

// NewHost builds a Host whose default ExecuteFrame always falls through to
// fallback (e.g. a bytecode interpreter loop supplied by the caller).
func NewHost(fallback FrameHandler) *Host {
	return &Host{ExecuteFrame: fallback}
}
