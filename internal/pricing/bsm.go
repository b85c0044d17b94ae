// Package pricing implements Black-Scholes-Merton pricing for options on
// futures with zero cost of carry, implied volatility root finding and delta.
package pricing

import (
	"math"
	"strings"
)

// OptionType selects the payoff.
type OptionType int

const (
	Put OptionType = iota
	Call
)

func (t OptionType) String() string {
	if t == Call {
		return "call"
	}
	return "put"
}

// optionMarkerWindow is how many trailing characters of an option symbol
// are searched for the call marker.
const optionMarkerWindow = 10

// TypeFromSymbol returns Call when 'C' appears in the trailing characters of
// the option symbol and Put otherwise.
func TypeFromSymbol(symbol string) OptionType {
	tail := symbol
	if len(tail) > optionMarkerWindow {
		tail = tail[len(tail)-optionMarkerWindow:]
	}
	if strings.Contains(tail, "C") {
		return Call
	}
	return Put
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func d1d2(f, k, t, sigma float64) (float64, float64) {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(f/k) + 0.5*sigma*sigma*t) / (sigma * sqrtT)
	return d1, d1 - sigma*sqrtT
}

// Price returns the model price of an option on a future F with strike K,
// T years to expiry and volatility sigma (decimal). The risk-free rate is 0.
func Price(f, k, t, sigma float64, typ OptionType) float64 {
	d1, d2 := d1d2(f, k, t, sigma)
	if typ == Call {
		return f*normCDF(d1) - k*normCDF(d2)
	}
	return k*normCDF(-d2) - f*normCDF(-d1)
}

// Delta returns Φ(d1) for calls and Φ(d1)-1 for puts.
func Delta(f, k, t, sigma float64, typ OptionType) float64 {
	d1, _ := d1d2(f, k, t, sigma)
	if typ == Call {
		return normCDF(d1)
	}
	return normCDF(d1) - 1
}
