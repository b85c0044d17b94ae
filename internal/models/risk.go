package models

// Leg holds the quote side of one leg of a joined row.
type Leg struct {
	BidPrice Float
	AskPrice Float
	BidSize  Float
	AskSize  Float
}

// Mid returns the leg's mid price.
func (l Leg) Mid() Float { return Mid(l.BidPrice, l.AskPrice) }

// RiskRow is a position enriched with quotes and derived risk figures.
// Option carries the option leg quote, Future the underlying leg quote.
type RiskRow struct {
	InstrumentPosition

	Option Leg
	Future Leg

	MidOption         Float
	MidFuture         Float
	T                 Float
	ImpliedVolatility Float
	Delta             Float
	PosDelta          Float
	BCDelta           Float
	Currency          string
}

// ExposureRow is the total bc_delta for one currency code.
type ExposureRow struct {
	Currency     string  `json:"ccy"`
	TotalBCDelta float64 `json:"total_bc_delta"`
}

// ExposureSummary is ordered by currency code, one row per currency.
type ExposureSummary []ExposureRow

// Total returns the exposure for ccy and whether the currency is present.
func (s ExposureSummary) Total(ccy string) (float64, bool) {
	for _, row := range s {
		if row.Currency == ccy {
			return row.TotalBCDelta, true
		}
	}
	return 0, false
}
