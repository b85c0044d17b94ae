package risk

import (
	"time"

	"fxrisk/internal/models"
)

const secondsPerYear = 365 * 24 * 60 * 60

// DefaultDeskLocation is the fixed UTC-6 zone of the trading desk.
var DefaultDeskLocation = time.FixedZone("UTC-6", -6*60*60)

// EvaluationInstant anchors now to the desk zone. One instant is taken per
// run so every row shares the same clock.
func EvaluationInstant(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = DefaultDeskLocation
	}
	return now.In(loc)
}

// TimeToExpiry is the year fraction between at and expiry, or missing when
// there is no expiry.
func TimeToExpiry(expiry *time.Time, at time.Time) models.Float {
	if expiry == nil {
		return models.None()
	}
	return models.Some(expiry.Sub(at).Seconds() / secondsPerYear)
}
