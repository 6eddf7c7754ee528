package forecast

import (
	"math"
)

// holtFit is the outcome of fitting Holt's linear method to a series.
type holtFit struct {
	Alpha float64
	Beta  float64
	SSE   float64
	Level float64 // smoothed level after the last observation
	Slope float64 // smoothed slope after the last observation
}

// runHolt smooths y with fixed alpha and beta and returns the sum of squared
// one-step-ahead errors with the final level and slope. The level starts at
// y[0] and the slope at y[1]-y[0]; len(y) must be at least 2.
func runHolt(y []float64, alpha, beta float64) (sse, level, slope float64) {
	level = y[0]
	slope = y[1] - y[0]

	for t := 1; t < len(y); t++ {
		predicted := level + slope
		err := y[t] - predicted
		sse += err * err

		prevLevel := level
		level = alpha*y[t] + (1-alpha)*(prevLevel+slope)
		slope = beta*(level-prevLevel) + (1-beta)*slope
	}

	return sse, level, slope
}

// fitHolt grid-searches alpha and beta over (0, 1] in steps of gridStep and keeps
// the pair with the lowest SSE. Ties keep the first pair found (alpha outer,
// beta inner), so a fixed input always yields the same parameters.
func fitHolt(y []float64, gridStep float64) holtFit {
	steps := int(math.Round(1 / gridStep))
	if steps < 1 {
		steps = 1
	}

	best := holtFit{SSE: math.Inf(1)}
	for i := 1; i <= steps; i++ {
		alpha := math.Min(float64(i)*gridStep, 1)
		for j := 1; j <= steps; j++ {
			beta := math.Min(float64(j)*gridStep, 1)
			sse, level, slope := runHolt(y, alpha, beta)
			if sse < best.SSE {
				best = holtFit{Alpha: alpha, Beta: beta, SSE: sse, Level: level, Slope: slope}
			}
		}
	}

	return best
}

// extrapolate projects the fitted trend k steps past the last smoothed point.
func (f holtFit) extrapolate(k int) float64 {
	return f.Level + float64(k)*f.Slope
}
