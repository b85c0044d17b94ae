// Package risk turns a quote snapshot and the FX inventory into per-position
// risk rows and a per-currency exposure summary. Every stage returns new
// values and leaves its inputs untouched.
package risk

import "fxrisk/internal/models"

// Join left-joins quotes onto positions twice: on OptionStreamerSymbol for
// the option leg and on StreamerSymbol for the future leg. Unmatched legs
// keep missing prices and therefore missing mids.
func Join(positions []models.InstrumentPosition, quotes map[string]models.QuoteRecord) []models.RiskRow {
	rows := make([]models.RiskRow, 0, len(positions))
	for _, p := range positions {
		row := models.RiskRow{InstrumentPosition: p}
		if p.OptionStreamerSymbol != "" {
			if q, ok := quotes[p.OptionStreamerSymbol]; ok {
				row.Option = legFromQuote(q)
			}
		}
		if p.StreamerSymbol != "" {
			if q, ok := quotes[p.StreamerSymbol]; ok {
				row.Future = legFromQuote(q)
			}
		}
		row.MidOption = row.Option.Mid()
		row.MidFuture = row.Future.Mid()
		rows = append(rows, row)
	}
	return rows
}

func legFromQuote(q models.QuoteRecord) models.Leg {
	return models.Leg{
		BidPrice: q.BidPrice,
		AskPrice: q.AskPrice,
		BidSize:  q.BidSize,
		AskSize:  q.AskSize,
	}
}
