// Package inventory turns raw account positions and futures master data into
// the FX inventory the risk pipeline prices.
package inventory

import (
	"sort"
	"strings"

	"fxrisk/internal/models"
)

const minifuturePrefix = "/M"

// IsFX reports whether a position symbol belongs to a CME FX contract. The
// FX root digit sits at index 2 for options ("./6EZ4 ...") and micro
// futures ("/M6EZ4"), and at index 1 for outright futures ("/6EZ4").
func IsFX(symbol string) bool {
	if len(symbol) > 2 && symbol[2] == '6' {
		return true
	}
	return strings.HasPrefix(symbol, "/6")
}

// FilterFX keeps the FX positions, sorted by underlying symbol.
func FilterFX(positions []models.InstrumentPosition) []models.InstrumentPosition {
	out := make([]models.InstrumentPosition, 0, len(positions))
	for _, p := range positions {
		if IsFX(p.Symbol) {
			out = append(out, p)
		}
	}
	sortByUnderlying(out)
	return out
}

// Build enriches FX positions with feed symbols, strikes and contract sizes:
//
//   - streamer-symbol comes from the master data row of the underlying;
//   - option-streamer-symbol and a missing strike come from the option chain
//     row of the position symbol;
//   - a minifuture ("/M...") without a streamer symbol falls back to its own
//     master data row, which also supplies its contract size;
//   - any remaining missing contract size comes from the underlying's row.
//
// The result is a new slice sorted by underlying symbol.
func Build(positions []models.InstrumentPosition, futures []models.FutureInstrument, chain []models.OptionChainEntry) []models.InstrumentPosition {
	bySymbol := make(map[string]models.FutureInstrument, len(futures))
	for _, f := range futures {
		bySymbol[f.Symbol] = f
	}
	options := make(map[string]models.OptionChainEntry, len(chain))
	for _, o := range chain {
		options[o.Symbol] = o
	}

	out := make([]models.InstrumentPosition, 0, len(positions))
	for _, p := range positions {
		p.StreamerSymbol = ""
		p.OptionStreamerSymbol = ""
		if f, ok := bySymbol[p.UnderlyingSymbol]; ok {
			p.StreamerSymbol = f.StreamerSymbol
		}

		if o, ok := options[p.Symbol]; ok {
			p.OptionStreamerSymbol = o.StreamerSymbol
			if !p.StrikePrice.Valid {
				p.StrikePrice = o.StrikePrice
			}
		}

		if strings.HasPrefix(p.Symbol, minifuturePrefix) {
			if f, ok := bySymbol[p.Symbol]; ok {
				if p.StreamerSymbol == "" {
					p.StreamerSymbol = f.StreamerSymbol
				}
				if !p.ContractSize.Valid {
					p.ContractSize = f.ContractSize
				}
			}
		}

		if !p.ContractSize.Valid {
			if f, ok := bySymbol[p.UnderlyingSymbol]; ok {
				p.ContractSize = f.ContractSize
			}
		}
		out = append(out, p)
	}
	sortByUnderlying(out)
	return out
}

// StreamerSymbols returns the subscription set: every distinct non-empty
// streamer symbol followed by every distinct option streamer symbol.
func StreamerSymbols(positions []models.InstrumentPosition) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" || s == "None" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, p := range positions {
		add(p.StreamerSymbol)
	}
	for _, p := range positions {
		add(p.OptionStreamerSymbol)
	}
	return out
}

// UnderlyingSymbols lists the distinct underlying symbols in order.
func UnderlyingSymbols(positions []models.InstrumentPosition) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range positions {
		if _, ok := seen[p.UnderlyingSymbol]; ok {
			continue
		}
		seen[p.UnderlyingSymbol] = struct{}{}
		out = append(out, p.UnderlyingSymbol)
	}
	return out
}

func sortByUnderlying(positions []models.InstrumentPosition) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].UnderlyingSymbol < positions[j].UnderlyingSymbol
	})
}
