package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"

	"github.com/evmc-sim/evmc-sim/artifact"
	"github.com/evmc-sim/evmc-sim/evmcerr"
	"github.com/evmc-sim/evmc-sim/evmclog"
)

const (
	linkAttempts = 10
	linkBackoff  = 100 * time.Millisecond
)

// Driver is the compiler's ahead-of-time and just-in-time entry point.
type Driver struct {
	Backend Backend
	Linker  Linker
	Opts    Options
	log     *evmclog.Logger
}

// NewDriver builds a Driver over the given backend and linker collaborators.
func NewDriver(backend Backend, linker Linker, opts Options) *Driver {
	return &Driver{Backend: backend, Linker: linker, Opts: opts, log: evmclog.Root().With("compiler")}
}

// CompileAOT compiles a single bytecode program to a linked shared object
// under Opts.OutDir, skipping the work entirely if an artifact for its hash
// already exists.
func (d *Driver) CompileAOT(ctx context.Context, bytecode []byte) (common.Hash, error) {
	hash := crypto.Keccak256Hash(bytecode)
	if artifact.Exists(d.Opts.OutDir, hash) {
		return hash, nil
	}
	if err := artifact.EnsureDir(d.Opts.OutDir, hash); err != nil {
		return hash, evmcerr.WithHash(evmcerr.Wrap(evmcerr.KindCompile, "mkdir", err), hash)
	}

	symbol := artifact.SymbolName(hash)
	unit, err := d.Backend.Translate(symbol, bytecode, d.Opts)
	if err != nil {
		return hash, evmcerr.WithHash(evmcerr.Wrap(evmcerr.KindCompile, "translate", err), hash)
	}

	objPath := artifact.ObjectPath(d.Opts.OutDir, hash)
	if err := d.Backend.WriteObject(unit, objPath); err != nil {
		return hash, evmcerr.WithHash(evmcerr.Wrap(evmcerr.KindCompile, "write-object", err), hash)
	}

	if d.Opts.NoLink {
		return hash, nil
	}

	soPath := artifact.SharedObjectPath(d.Opts.OutDir, hash)
	if err := d.link(ctx, []string{objPath}, soPath); err != nil {
		return hash, evmcerr.WithHash(evmcerr.Wrap(evmcerr.KindCompile, "link", err), hash)
	}
	return hash, nil
}

// link retries the link step up to linkAttempts times with a fixed backoff,
// since a background linker process can transiently fail under concurrent
// invocation (ported from the original compiler's own retry loop).
func (d *Driver) link(ctx context.Context, objPaths []string, soPath string) error {
	var lastErr error
	for attempt := 1; attempt <= linkAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Linker.Link(objPaths, soPath); err == nil {
			return nil
		} else {
			lastErr = err
			d.log.Debug("link attempt failed", "attempt", attempt, "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(linkBackoff):
			}
		}
	}
	return fmt.Errorf("link failed after %d attempts: %w", linkAttempts, lastErr)
}

// CompileAOTMany compiles a batch of bytecode programs in parallel, stopping
// at the first error encountered (errgroup semantics): the group's context
// is canceled and the remaining in-flight compiles are abandoned.
func (d *Driver) CompileAOTMany(ctx context.Context, bytecodes [][]byte) ([]common.Hash, error) {
	hashes := make([]common.Hash, len(bytecodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, bc := range bytecodes {
		i, bc := i, bc
		g.Go(func() error {
			h, err := d.CompileAOT(gctx, bc)
			hashes[i] = h
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return hashes, err
	}
	return hashes, nil
}

// JITEntry pairs a compiled hash with its in-process callable function.
type JITEntry struct {
	Hash common.Hash
	Fn   FuncPtr
}

// JITResult is the output of CompileJITMany: one entry per input bytecode,
// in input order.
type JITResult struct {
	Entries []JITEntry
}

// CompileJITMany compiles a batch of bytecode programs directly to
// in-process callable functions, skipping the artifact directory and
// dynamic loader entirely.
func (d *Driver) CompileJITMany(ctx context.Context, bytecodes [][]byte) (JITResult, error) {
	entries := make([]JITEntry, len(bytecodes))
	g, _ := errgroup.WithContext(ctx)
	for i, bc := range bytecodes {
		i, bc := i, bc
		g.Go(func() error {
			hash := crypto.Keccak256Hash(bc)
			unit, err := d.Backend.Translate(artifact.SymbolName(hash), bc, d.Opts)
			if err != nil {
				return evmcerr.WithHash(evmcerr.Wrap(evmcerr.KindCompile, "translate", err), hash)
			}
			fn, err := d.Backend.FinalizeJIT(unit)
			if err != nil {
				return evmcerr.WithHash(evmcerr.Wrap(evmcerr.KindCompile, "finalize-jit", err), hash)
			}
			entries[i] = JITEntry{Hash: hash, Fn: fn}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return JITResult{}, err
	}
	return JITResult{Entries: entries}, nil
}
