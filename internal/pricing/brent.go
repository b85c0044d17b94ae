package pricing

import (
	"errors"
	"math"
)

var (
	// ErrNoBracket is returned when the function has the same sign at both ends.
	ErrNoBracket = errors.New("root not bracketed")
	// ErrNoConvergence is returned when the iteration budget runs out.
	ErrNoConvergence = errors.New("root finder did not converge")
)

const (
	brentMaxIter = 100
	brentRelTol  = 4 * 2.220446049250313e-16
)

// Brent finds a root of fn in [a, b] using Brent's method (inverse quadratic
// interpolation, secant and bisection steps). fn(a) and fn(b) must differ in
// sign. xtol is the absolute tolerance on the root.
func Brent(fn func(float64) float64, a, b, xtol float64) (float64, error) {
	xpre, xcur := a, b
	fpre, fcur := fn(xpre), fn(xcur)
	if math.IsNaN(fpre) || math.IsNaN(fcur) {
		return 0, ErrNoBracket
	}
	if fpre == 0 {
		return xpre, nil
	}
	if fcur == 0 {
		return xcur, nil
	}
	if math.Signbit(fpre) == math.Signbit(fcur) {
		return 0, ErrNoBracket
	}

	var xblk, fblk, spre, scur float64
	for i := 0; i < brentMaxIter; i++ {
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + brentRelTol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			return xcur, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic interpolation
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}
		fcur = fn(xcur)
		if math.IsNaN(fcur) {
			return 0, ErrNoConvergence
		}
	}
	return xcur, ErrNoConvergence
}
