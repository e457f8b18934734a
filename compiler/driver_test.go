package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fibLikeBytecode: push 1, push 1, add (computes 2; stands in for a tiny pure
// computation since fakeFuncPtr only understands PUSH1/ADD/RETURN).
var fibLikeBytecode = []byte{0x60, 0x01, 0x60, 0x01, 0x01, 0xf3}

func TestCompileAOT_IdempotentByHash(t *testing.T) {
	dir := t.TempDir()
	d := NewDriver(NewFakeBackend(), NewFakeLinker(), Options{OutDir: dir, SpecID: 17})

	h1, err := d.CompileAOT(context.Background(), fibLikeBytecode)
	require.NoError(t, err)

	h2, err := d.CompileAOT(context.Background(), fibLikeBytecode)
	require.NoError(t, err)
	require.Equal(t, h1, h2, "same bytecode must hash to the same artifact")
}

func TestCompileAOTMany_CompilesBatchAndSharesHash(t *testing.T) {
	dir := t.TempDir()
	d := NewDriver(NewFakeBackend(), NewFakeLinker(), Options{OutDir: dir, SpecID: 17})

	_, err := d.CompileAOTMany(context.Background(), [][]byte{fibLikeBytecode, {}, fibLikeBytecode})
	require.NoError(t, err) // empty bytecode still "compiles" under the fake backend

	hashes, err := d.CompileAOTMany(context.Background(), [][]byte{fibLikeBytecode, fibLikeBytecode})
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	require.Equal(t, hashes[0], hashes[1])
}

func TestCompileJITMany(t *testing.T) {
	d := NewDriver(NewFakeBackend(), NewFakeLinker(), Options{SpecID: 17})
	res, err := d.CompileJITMany(context.Background(), [][]byte{fibLikeBytecode})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)

	out, gasLeft, err := res.Entries[0].Fn.Call(nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, []byte{2}, out)
	require.Less(t, gasLeft, uint64(1_000_000))
}
