package guzzlers

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
)

// Entry is one ranked bytecode in a Report. Address is the address most
// frequently observed running this entry's bytecode, not necessarily the
// only one backed by it.
type Entry struct {
	Address           common.Address
	Usage             ContractUsage
	GasProportion     float64 // this entry's share of total net gas
	GasCumProportion  float64 // running total including this entry
	FreqProportion    float64 // this entry's share of total call frequency
	FreqCumProportion float64 // running total including this entry
}

// Report ranks distinct bytecodes by descending net-gas proportion
// (GasUsed - GasDeficit, floored at zero), with monotonically
// non-decreasing cumulative proportions for both gas and call frequency.
type Report struct {
	Entries    []Entry
	TotalGas   uint64
	TotalCalls uint64
}

func buildReport(groups map[string]*bytecodeGroup) Report {
	type scored struct {
		addr common.Address
		u    ContractUsage
		net  uint64
	}
	var scoredEntries []scored
	var totalGas, totalCalls uint64
	for _, g := range groups {
		net := g.usage.GasUsed
		if g.usage.GasDeficit < net {
			net -= g.usage.GasDeficit
		} else {
			net = 0
		}
		scoredEntries = append(scoredEntries, scored{addr: g.repAddr, u: g.usage, net: net})
		totalGas += net
		totalCalls += g.usage.Frequency
	}

	sort.Slice(scoredEntries, func(i, j int) bool { return scoredEntries[i].net > scoredEntries[j].net })

	entries := make([]Entry, 0, len(scoredEntries))
	var gasCum, freqCum float64
	for _, s := range scoredEntries {
		var gasProp, freqProp float64
		if totalGas > 0 {
			gasProp = float64(s.net) / float64(totalGas)
		}
		if totalCalls > 0 {
			freqProp = float64(s.u.Frequency) / float64(totalCalls)
		}
		gasCum += gasProp
		freqCum += freqProp
		entries = append(entries, Entry{
			Address:           s.addr,
			Usage:             s.u,
			GasProportion:     gasProp,
			GasCumProportion:  gasCum,
			FreqProportion:    freqProp,
			FreqCumProportion: freqCum,
		})
	}
	return Report{Entries: entries, TotalGas: totalGas, TotalCalls: totalCalls}
}

// Take returns the top n entries by gas proportion.
func (r Report) Take(n int) []Entry {
	if n > len(r.Entries) {
		n = len(r.Entries)
	}
	return r.Entries[:n]
}

// TakeWhileCumProp returns the leading entries whose cumulative gas
// proportion stays strictly below cutoff. The first entry is always
// included, even when it alone reaches cutoff.
func (r Report) TakeWhileCumProp(cutoff float64) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.GasCumProportion >= cutoff && len(out) > 0 {
			break
		}
		out = append(out, e)
		if e.GasCumProportion >= cutoff {
			break
		}
	}
	return out
}

// WriteTable renders entries as a human-readable table, for CLI reporting.
func (r Report) WriteTable(w io.Writer, entries []Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"address", "gas used", "deficit", "calls", "gas prop.", "gas cum.", "call prop.", "call cum."})
	for _, e := range entries {
		table.Append([]string{
			e.Address.Hex(),
			strconv.FormatUint(e.Usage.GasUsed, 10),
			strconv.FormatUint(e.Usage.GasDeficit, 10),
			strconv.FormatUint(e.Usage.Frequency, 10),
			fmt.Sprintf("%.4f", e.GasProportion),
			fmt.Sprintf("%.4f", e.GasCumProportion),
			fmt.Sprintf("%.4f", e.FreqProportion),
			fmt.Sprintf("%.4f", e.FreqCumProportion),
		})
	}
	table.Render()
}
