// Package artifact manages the content-addressed on-disk layout of compiled
// bytecode artifacts: one directory per bytecode hash, holding the
// intermediate object file and the linked shared object.
package artifact

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

const sharedObjName = "a.so"

// Dir returns the per-hash artifact directory under outDir.
func Dir(outDir string, hash common.Hash) string {
	return filepath.Join(outDir, hex.EncodeToString(hash[:]))
}

// ObjectPath returns the path of the intermediate object file for hash.
func ObjectPath(outDir string, hash common.Hash) string {
	return filepath.Join(Dir(outDir, hash), hex.EncodeToString(hash[:])+".o")
}

// SharedObjectPath returns the path of the linked shared object for hash.
func SharedObjectPath(outDir string, hash common.Hash) string {
	return filepath.Join(Dir(outDir, hash), sharedObjName)
}

// SymbolName is the exported symbol name compiled artifacts expose: the
// lowercase hex encoding of the bytecode hash.
func SymbolName(hash common.Hash) string {
	return hex.EncodeToString(hash[:])
}

// Exists reports whether a shared object for hash has already been linked,
// the gate compiler.Driver.CompileAOT uses to skip redundant work.
func Exists(outDir string, hash common.Hash) bool {
	_, err := os.Stat(SharedObjectPath(outDir, hash))
	return err == nil
}

// EnsureDir creates the per-hash artifact directory if it does not exist.
func EnsureDir(outDir string, hash common.Hash) error {
	return MakeDir(Dir(outDir, hash))
}

// MakeDir creates dirPath and any missing parents, a no-op if it already
// exists.
func MakeDir(dirPath string) error {
	if _, err := os.Stat(dirPath); err == nil {
		return nil
	}
	return os.MkdirAll(dirPath, 0o755)
}

// ParseHashDir parses a directory entry name as a bytecode hash, used by
// loader.LoadAll to filter non-hash entries out of the artifact root.
func ParseHashDir(name string) (common.Hash, bool) {
	b, err := hex.DecodeString(name)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, false
	}
	var h common.Hash
	copy(h[:], b)
	return h, true
}

// List enumerates every hash directory present under outDir that contains a
// linked shared object.
func List(outDir string) ([]common.Hash, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var hashes []common.Hash
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		hash, ok := ParseHashDir(e.Name())
		if !ok {
			continue
		}
		if Exists(outDir, hash) {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}
