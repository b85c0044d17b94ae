package risk

import (
	"time"

	"fxrisk/internal/models"
)

// Result is the output of one risk pass.
type Result struct {
	At       time.Time
	Rows     []models.RiskRow
	Summary  models.ExposureSummary
	Unpriced int
}

// Compute joins quotes onto positions, prices the rows at the evaluation
// instant and aggregates exposure per currency.
func Compute(positions []models.InstrumentPosition, quotes map[string]models.QuoteRecord, at time.Time) Result {
	rows := NewCalculator(at).Apply(Join(positions, quotes))
	return Result{
		At:       at,
		Rows:     rows,
		Summary:  Aggregate(rows),
		Unpriced: Unpriced(rows),
	}
}
