//go:build cgo

// Package loader resolves compiled artifacts on disk into callable
// FunctionHandles by dynamically loading their shared object and looking up
// the hash-named exported symbol, via cgo dlopen/dlsym.
package loader

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef void* (*evmc_fn_t)(const void* input, size_t input_len, unsigned long long gas_limit,
                           size_t* out_len, unsigned long long* gas_left, int* ok);

static void* evmc_dlopen(const char* path) {
    return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static void* evmc_dlsym(void* handle, const char* name) {
    return dlsym(handle, name);
}

static int evmc_dlclose(void* handle) {
    return dlclose(handle);
}

static void* evmc_call(void* fn, const void* input, size_t input_len, unsigned long long gas_limit,
                       size_t* out_len, unsigned long long* gas_left, int* ok) {
    return ((evmc_fn_t)fn)(input, input_len, gas_limit, out_len, gas_left, ok);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/ethereum/go-ethereum/common"

	"github.com/evmc-sim/evmc-sim/artifact"
	"github.com/evmc-sim/evmc-sim/evmcerr"
	"github.com/evmc-sim/evmc-sim/evmclog"
	"github.com/evmc-sim/evmc-sim/registry"
)

// libraryAnchor keeps a dlopen'd shared object alive for as long as handles
// resolved from it remain callable.
type libraryAnchor struct {
	handle unsafe.Pointer
	path   string
}

func (a *libraryAnchor) Close() error {
	if a.handle == nil {
		return nil
	}
	if C.evmc_dlclose(a.handle) != 0 {
		return fmt.Errorf("dlclose failed for %s", a.path)
	}
	a.handle = nil
	return nil
}

// nativeFuncPtr wraps a dlsym'd symbol as a compiler.FuncPtr.
type nativeFuncPtr struct {
	sym unsafe.Pointer
}

func (f nativeFuncPtr) Call(input []byte, gasLimit uint64) ([]byte, uint64, error) {
	var inPtr unsafe.Pointer
	if len(input) > 0 {
		inPtr = unsafe.Pointer(&input[0])
	}
	var outLen C.size_t
	var gasLeft C.ulonglong
	var ok C.int

	outPtr := C.evmc_call(f.sym, inPtr, C.size_t(len(input)), C.ulonglong(gasLimit), &outLen, &gasLeft, &ok)
	if ok == 0 {
		return nil, 0, fmt.Errorf("native function call failed")
	}
	if outPtr == nil || outLen == 0 {
		return nil, uint64(gasLeft), nil
	}
	out := C.GoBytes(outPtr, C.int(outLen))
	return out, uint64(gasLeft), nil
}

// LoadOne dlopen's the shared object for hash under dir and resolves its
// hash-named exported symbol.
func LoadOne(dir string, hash common.Hash) (registry.FunctionHandle, error) {
	soPath := artifact.SharedObjectPath(dir, hash)
	cPath := C.CString(soPath)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.evmc_dlopen(cPath)
	if handle == nil {
		return registry.FunctionHandle{}, evmcerr.WithHash(
			evmcerr.Wrap(evmcerr.KindLoad, "dlopen", fmt.Errorf("cannot open %s", soPath)), hash)
	}

	symName := C.CString(artifact.SymbolName(hash))
	defer C.free(unsafe.Pointer(symName))

	sym := C.evmc_dlsym(handle, symName)
	if sym == nil {
		C.evmc_dlclose(handle)
		return registry.FunctionHandle{}, evmcerr.WithHash(
			evmcerr.Wrap(evmcerr.KindLoad, "dlsym", fmt.Errorf("symbol %s not found", artifact.SymbolName(hash))), hash)
	}

	return registry.FunctionHandle{
		Hash:   hash,
		Fn:     nativeFuncPtr{sym: sym},
		Anchor: &libraryAnchor{handle: handle, path: soPath},
	}, nil
}

// LoadSelected loads only the given hashes, skipping and logging (rather
// than failing) any that are missing on disk.
func LoadSelected(dir string, hashes []common.Hash) []evmcerr.Result[registry.FunctionHandle] {
	log := evmclog.Root().With("loader")
	out := make([]evmcerr.Result[registry.FunctionHandle], 0, len(hashes))
	for _, h := range hashes {
		if !artifact.Exists(dir, h) {
			log.Warn("artifact missing, skipping", "hash", h.Hex())
			continue
		}
		handle, err := LoadOne(dir, h)
		if err != nil {
			out = append(out, evmcerr.Failed[registry.FunctionHandle](err))
			continue
		}
		out = append(out, evmcerr.Ok(handle))
	}
	return out
}

// LoadAll loads every compiled artifact found under dir, skipping directory
// entries whose name does not parse as a hash.
func LoadAll(dir string) ([]evmcerr.Result[registry.FunctionHandle], error) {
	hashes, err := artifact.List(dir)
	if err != nil {
		return nil, evmcerr.Wrap(evmcerr.KindLoad, "list", err)
	}
	return LoadSelected(dir, hashes), nil
}
