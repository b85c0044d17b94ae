package pricing

import "math"

const (
	// MinVolatility and MaxVolatility bound the implied volatility search.
	MinVolatility = 1e-6
	MaxVolatility = 1.0
	// VolatilityTolerance is the absolute tolerance on sigma.
	VolatilityTolerance = 1e-6
)

// ImpliedVolatility solves for the volatility (decimal) that reprices the
// option to price. ok is false when the inputs cannot be priced or the root
// is not bracketed by [MinVolatility, MaxVolatility].
func ImpliedVolatility(price, f, k, t float64, typ OptionType) (sigma float64, ok bool) {
	if !finitePositive(f) || !finitePositive(k) || !finitePositive(t) || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false
	}
	objective := func(s float64) float64 {
		return Price(f, k, t, s, typ) - price
	}
	sigma, err := Brent(objective, MinVolatility, MaxVolatility, VolatilityTolerance)
	if err != nil {
		return 0, false
	}
	return sigma, true
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
