// Package analytics provides the shared series types and error kinds used by the
// decomposition, forecasting and anomaly packages.
package analytics

import (
	"math"
)

// Observation is a single evenly spaced data point. TimeIndex is an ordinal
// (for example a day number); consecutive observations differ by exactly one.
type Observation struct {
	TimeIndex int64   `json:"time_index"`
	Value     float64 `json:"value"`
}

// Series is an ordered, gap-free run of observations. A Series is immutable:
// every accessor returns copies and every derived Series is a new value.
type Series struct {
	obs []Observation
}

// NewSeries validates and copies the observations into a Series.
// Indices must be strictly contiguous and values finite.
func NewSeries(observations []Observation) (Series, error) {
	obs := make([]Observation, len(observations))
	copy(obs, observations)

	for i, o := range obs {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return Series{}, &InvalidParameterError{
				Name:   "value",
				Value:  o.Value,
				Reason: "observation values must be finite",
			}
		}
		if i > 0 && o.TimeIndex != obs[i-1].TimeIndex+1 {
			return Series{}, &InvalidParameterError{
				Name:   "time_index",
				Value:  o.TimeIndex,
				Reason: "time indices must be contiguous and increasing by one",
			}
		}
	}

	return Series{obs: obs}, nil
}

// FromValues builds a Series whose indices start at start and increase by one.
func FromValues(start int64, values []float64) (Series, error) {
	obs := make([]Observation, len(values))
	for i, v := range values {
		obs[i] = Observation{TimeIndex: start + int64(i), Value: v}
	}
	return NewSeries(obs)
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.obs)
}

// At returns the observation at position i.
func (s Series) At(i int) Observation {
	return s.obs[i]
}

// Observations returns a copy of the observations
func (s Series) Observations() []Observation {
	out := make([]Observation, len(s.obs))
	copy(out, s.obs)
	return out
}

// Values extracts just the values from the series
func (s Series) Values() []float64 {
	values := make([]float64, len(s.obs))
	for i, o := range s.obs {
		values[i] = o.Value
	}
	return values
}

// NextIndex returns the time index that would follow the last observation.
func (s Series) NextIndex() int64 {
	if len(s.obs) == 0 {
		return 0
	}
	return s.obs[len(s.obs)-1].TimeIndex + 1
}

// Mean calculates the mean of all values
func (s Series) Mean() float64 {
	if len(s.obs) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range s.obs {
		sum += o.Value
	}
	return sum / float64(len(s.obs))
}

// MeanAbs calculates the mean absolute value, used as the scale of the series.
func (s Series) MeanAbs() float64 {
	if len(s.obs) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range s.obs {
		sum += math.Abs(o.Value)
	}
	return sum / float64(len(s.obs))
}

// slice returns the sub-series [from, to). The backing array is shared, which is
// safe because no Series method mutates it.
func (s Series) slice(from, to int) Series {
	return Series{obs: s.obs[from:to:to]}
}

// Split partitions series into training (all but the last horizon observations)
// and holdout (the last horizon observations).
func Split(series Series, horizon, period int) (training, holdout Series, err error) {
	if period < 2 {
		return Series{}, Series{}, &InvalidParameterError{
			Name:   "period_length",
			Value:  period,
			Reason: "period_length must be at least 2",
		}
	}
	if horizon < 1 {
		return Series{}, Series{}, &InvalidParameterError{
			Name:   "horizon",
			Value:  horizon,
			Reason: "horizon must be at least 1",
		}
	}

	n := series.Len()
	if n <= horizon {
		return Series{}, Series{}, &InsufficientDataError{
			Need:   horizon + 1,
			Have:   n,
			Reason: "series must be longer than the horizon",
		}
	}
	if n < 2*period {
		return Series{}, Series{}, &InsufficientDataError{
			Need:   2 * period,
			Have:   n,
			Reason: "series must span at least two full periods",
		}
	}

	cut := n - horizon
	if horizon >= cut {
		return Series{}, Series{}, &InvalidParameterError{
			Name:   "horizon",
			Value:  horizon,
			Reason: "horizon must be shorter than the training series",
		}
	}

	return series.slice(0, cut), series.slice(cut, n), nil
}
