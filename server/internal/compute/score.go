package compute

import (
	"math"

	"github.com/linewatch/linewatch/server/internal/config"
)

// Efficiency floors and penalty spans, in score points.
const (
	// bandFloor is the lowest score a reading inside [lower, upper] can get.
	bandFloor = 70
	// bandPenalty is the maximum deduction inside the band.
	bandPenalty = 30.0
	// outsidePenalty is the deduction reached at min/max power.
	outsidePenalty = 40.0
	// outsideFloor is the lowest score for a configured line.
	outsideFloor = 30
)

// Efficiency scores an active-power reading from 0 to 100.
//
// Configured lines (p non-nil), piecewise on where power falls:
//
//	inside [lower, upper]:  100 - |power-mean|/(upper-mean) * 30, floored, min 70
//	below lower:            70 - (lower-power)/(lower-min) * 40,  floored, min 30
//	above upper:            70 - (power-upper)/(max-upper) * 40,  floored, min 30
//
// Unconfigured lines score power as a percentage of 100 kW, capped at 100.
//
// The profile must have passed LineConfig.Validate; the divisors are then
// all strictly positive.
func Efficiency(p *config.LineConfig, power float64) int {
	if p == nil {
		return clampInt(int(math.Floor(power/100*100)), 0, 100)
	}

	switch {
	case power >= p.LowerLimit && power <= p.UpperLimit:
		deviation := math.Abs(power - p.MeanPower)
		maxDeviation := p.UpperLimit - p.MeanPower
		score := 100 - deviation/maxDeviation*bandPenalty
		return max(bandFloor, int(math.Floor(score)))

	case power < p.LowerLimit:
		deviation := p.LowerLimit - power
		span := p.LowerLimit - p.MinPower
		score := bandFloor - deviation/span*outsidePenalty
		return max(outsideFloor, int(math.Floor(score)))

	default:
		deviation := power - p.UpperLimit
		span := p.MaxPower - p.UpperLimit
		score := bandFloor - deviation/span*outsidePenalty
		return max(outsideFloor, int(math.Floor(score)))
	}
}

// clampInt restricts v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
