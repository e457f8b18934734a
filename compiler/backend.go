package compiler

import "github.com/ethereum/go-ethereum/common"

// TranslatedUnit is the backend's in-memory translation of one bytecode
// program, ready to be written to an object file or finalized as a callable
// JIT function.
type TranslatedUnit struct {
	Hash   common.Hash
	Symbol string
	// Native holds backend-private translation state; opaque to callers.
	Native interface{}
}

// FuncPtr is an opaque, callable compiled function. The real backend returns
// a native code pointer; test doubles return a Go closure reachable only
// through Call.
type FuncPtr interface {
	Call(input []byte, gasLimit uint64) (output []byte, gasLeft uint64, err error)
}

// Backend is the object-file compiler backend: an external collaborator.
// Production implementations live outside this module (an LLVM-based
// native-code generator); this module only depends on the interface plus a
// linker step (see Driver.link) to turn a TranslatedUnit into a shared
// object on disk.
type Backend interface {
	// Translate compiles bytecode into backend IR under the given options,
	// without yet writing to disk.
	Translate(symbol string, bytecode []byte, opts Options) (TranslatedUnit, error)

	// WriteObject lowers a translated unit to an object file at objPath.
	WriteObject(unit TranslatedUnit, objPath string) error

	// FinalizeJIT lowers a translated unit directly to an in-process
	// callable function, skipping the object/link/dlopen round trip.
	FinalizeJIT(unit TranslatedUnit) (FuncPtr, error)
}

// Linker is the external linker collaborator: turns one or more object
// files into a single shared object.
type Linker interface {
	Link(objPaths []string, soPath string) error
}
