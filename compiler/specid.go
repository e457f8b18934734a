package compiler

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// SpecID maps a chain config and block context to the numeric fork id a
// native backend expects.
func SpecID(cfg *params.ChainConfig, num uint64, ts uint64) uint8 {
	bn := new(big.Int).SetUint64(num)
	switch {
	case cfg.IsPrague(bn, ts):
		return 19
	case cfg.IsCancun(bn, ts):
		return 17
	case cfg.IsShanghai(bn, ts):
		return 16
	case cfg.IsLondon(bn):
		return 12
	case cfg.IsBerlin(bn):
		return 11
	case cfg.IsIstanbul(bn):
		return 9
	case cfg.IsPetersburg(bn):
		return 8
	case cfg.IsConstantinople(bn):
		return 7
	case cfg.IsByzantium(bn):
		return 6
	case cfg.IsEIP158(bn):
		return 5
	case cfg.IsEIP150(bn):
		return 4
	case cfg.IsHomestead(bn):
		return 2
	default:
		return 0
	}
}
