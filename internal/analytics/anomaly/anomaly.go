// Package anomaly compares holdout actuals with their prediction intervals.
package anomaly

import (
	"math"

	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/forecast"
)

// AnomalyType represents the type of anomaly detected
type AnomalyType string

const (
	AnomalyTypeNone  AnomalyType = ""      // Inside the interval
	AnomalyTypeSpike AnomalyType = "spike" // Above the upper bound
	AnomalyTypeDrop  AnomalyType = "drop"  // Below the lower bound
)

// Range represents expected value range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Flag is the verdict for one holdout observation
type Flag struct {
	TimeIndex int64       `json:"time_index"`
	Actual    float64     `json:"actual"`
	Expected  Range       `json:"expected"`
	Anomalous bool        `json:"anomalous"`
	Type      AnomalyType `json:"type,omitempty"`
	// Score is the distance beyond the violated bound in half-widths; zero
	// when the point is inside the interval, MaxFloat64 for a zero-width one.
	Score float64 `json:"score"`
}

// Detect flags each holdout observation whose value lies strictly outside its
// interval. A value equal to a bound is not anomalous. holdout, points and
// bounds must have equal length and are compared index by index.
func Detect(holdout analytics.Series, points []forecast.ForecastPoint, bounds []forecast.Bounds) ([]Flag, error) {
	if holdout.Len() != len(bounds) || len(points) != len(bounds) {
		return nil, &analytics.InvalidParameterError{
			Name:   "holdout",
			Value:  holdout.Len(),
			Reason: "holdout, forecast and bounds must have the same length",
		}
	}

	flags := make([]Flag, len(bounds))
	for i, b := range bounds {
		obs := holdout.At(i)
		f := Flag{
			TimeIndex: obs.TimeIndex,
			Actual:    obs.Value,
			Expected:  Range{Min: b.Lower, Max: b.Upper},
		}

		switch {
		case obs.Value > b.Upper:
			f.Anomalous = true
			f.Type = AnomalyTypeSpike
			f.Score = score(obs.Value-b.Upper, b.HalfWidth)
		case obs.Value < b.Lower:
			f.Anomalous = true
			f.Type = AnomalyTypeDrop
			f.Score = score(b.Lower-obs.Value, b.HalfWidth)
		}

		flags[i] = f
	}

	return flags, nil
}

// Count returns the number of anomalous flags
func Count(flags []Flag) int {
	n := 0
	for _, f := range flags {
		if f.Anomalous {
			n++
		}
	}
	return n
}

func score(excess, halfWidth float64) float64 {
	if halfWidth <= 0 {
		return math.MaxFloat64
	}
	return excess / halfWidth
}
