package risk

import (
	"time"

	"fxrisk/internal/models"
	"fxrisk/internal/pricing"
)

const (
	volatilityPlaces = 1
	deltaPlaces      = 2
)

// Calculator derives T, implied volatility, delta, pos_delta, bc_delta and
// currency for joined rows, all measured at one evaluation instant.
type Calculator struct {
	at time.Time
}

func NewCalculator(at time.Time) *Calculator {
	return &Calculator{at: at}
}

// At returns the evaluation instant.
func (c *Calculator) At() time.Time { return c.at }

// Apply returns a copy of rows with the risk fields filled in. Rows that
// cannot be priced keep missing values; nothing here fails.
func (c *Calculator) Apply(rows []models.RiskRow) []models.RiskRow {
	out := make([]models.RiskRow, len(rows))
	copy(out, rows)
	for i := range out {
		c.apply(&out[i])
	}
	return out
}

func (c *Calculator) apply(row *models.RiskRow) {
	row.Currency = CurrencyCode(row.UnderlyingSymbol)
	row.T = models.None()
	row.ImpliedVolatility = models.None()
	row.Delta = models.None()

	switch {
	case row.IsOption():
		row.T = TimeToExpiry(row.ExpiresAt, c.at)
		c.price(row)
		row.PosDelta = optionPosDelta(row.Delta, row.QuantityDirection)
	case row.IsFuture():
		row.PosDelta = futurePosDelta(row.QuantityDirection)
	default:
		row.PosDelta = models.Some(0)
	}

	row.BCDelta = models.Mul(row.PosDelta, row.Quantity, row.ContractSize)
}

// price solves implied volatility from the option mid and derives delta
// from the unrounded solution.
func (c *Calculator) price(row *models.RiskRow) {
	mid, okMid := row.MidOption.Get()
	f, okF := row.MidFuture.Get()
	k, okK := row.StrikePrice.Get()
	t, okT := row.T.Get()
	if !okMid || !okF || !okK || !okT {
		return
	}

	typ := pricing.TypeFromSymbol(row.Symbol)
	sigma, ok := pricing.ImpliedVolatility(mid, f, k, t, typ)
	if !ok {
		return
	}
	row.ImpliedVolatility = models.Some(sigma * 100).Round(volatilityPlaces)
	row.Delta = models.Some(pricing.Delta(f, k, t, sigma, typ)).Round(deltaPlaces)
}

func optionPosDelta(delta models.Float, dir models.Direction) models.Float {
	switch dir {
	case models.Long:
		return delta
	case models.Short:
		return delta.Neg()
	default:
		return models.Some(0)
	}
}

func futurePosDelta(dir models.Direction) models.Float {
	if dir == models.Long {
		return models.Some(1)
	}
	return models.Some(-1)
}
