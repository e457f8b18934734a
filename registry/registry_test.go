package registry

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type nopFuncPtr struct{}

func (nopFuncPtr) Call(_ []byte, gasLimit uint64) ([]byte, uint64, error) {
	return nil, gasLimit, nil
}

func TestRegistryLookup(t *testing.T) {
	h := common.HexToHash("0x01")
	r := New([]FunctionHandle{{Hash: h, Fn: nopFuncPtr{}, Anchor: NoAnchor{}}})

	got, ok := r.Lookup(h)
	require.True(t, ok)
	require.Equal(t, h, got.Hash)

	_, ok = r.Lookup(common.HexToHash("0x02"))
	require.False(t, ok)
}

// TestRegistryRace exercises concurrent reads against a shared Registry
// under the race detector.
func TestRegistryRace(t *testing.T) {
	h := common.HexToHash("0x03")
	r := New([]FunctionHandle{{Hash: h, Fn: nopFuncPtr{}, Anchor: NoAnchor{}}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Lookup(h)
		}()
	}
	wg.Wait()
}
