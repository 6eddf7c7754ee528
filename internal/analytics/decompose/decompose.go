// Package decompose implements classical additive seasonal decomposition:
// actual = seasonal + trend + residual.
package decompose

import (
	"math"

	"github.com/soltixdb/seasonal/internal/analytics"
)

// Component is the decomposition of one training observation. Trend and
// Residual are nil where the centered moving average is undefined (the first and
// last period/2 points); Seasonal is always defined.
type Component struct {
	TimeIndex int64    `json:"time_index"`
	Actual    float64  `json:"actual"`
	Seasonal  float64  `json:"seasonal"`
	Trend     *float64 `json:"trend"`
	Residual  *float64 `json:"residual"`
}

// Decomposition holds one component per training observation, index-aligned
// with the training series, plus the normalized per-phase seasonal pattern.
// Treat it as read-only once returned.
type Decomposition struct {
	Period     int         `json:"period_length"`
	Pattern    []float64   `json:"seasonal_pattern"`
	Components []Component `json:"components"`
}

// Decompose splits training into seasonal, trend and residual components for
// the given period.
func Decompose(training analytics.Series, period int) (*Decomposition, error) {
	if period < 2 {
		return nil, &analytics.InvalidParameterError{
			Name:   "period_length",
			Value:  period,
			Reason: "period_length must be at least 2",
		}
	}

	n := training.Len()
	if n < 2*period {
		return nil, &analytics.InsufficientDataError{
			Need:   2 * period,
			Have:   n,
			Reason: "decomposition needs at least two full periods",
		}
	}

	values := training.Values()

	// Step 1: trend by centered moving average
	trend := centeredMovingAverage(values, period)

	// Step 2: detrend where the trend is defined
	detrended := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(trend[i]) {
			detrended[i] = math.NaN()
			continue
		}
		detrended[i] = values[i] - trend[i]
	}

	// Step 3: raw seasonal estimate per phase
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i := 0; i < n; i++ {
		if math.IsNaN(detrended[i]) {
			continue
		}
		phase := i % period
		pattern[phase] += detrended[i]
		counts[phase]++
	}
	for p := 0; p < period; p++ {
		if counts[p] == 0 {
			return nil, &analytics.InsufficientDataError{
				Need:   2 * period,
				Have:   n,
				Reason: "every phase needs at least one defined trend point",
			}
		}
		pattern[p] /= float64(counts[p])
	}

	// Step 4: normalize so the pattern sums to zero over one period
	mean := 0.0
	for _, v := range pattern {
		mean += v
	}
	mean /= float64(period)
	for p := range pattern {
		pattern[p] -= mean
	}

	// Steps 5 and 6: tile the pattern and compute residuals
	components := make([]Component, n)
	for i := 0; i < n; i++ {
		c := Component{
			TimeIndex: training.At(i).TimeIndex,
			Actual:    values[i],
			Seasonal:  pattern[i%period],
		}
		if !math.IsNaN(trend[i]) {
			t := trend[i]
			r := values[i] - t - c.Seasonal
			c.Trend = &t
			c.Residual = &r
		}
		components[i] = c
	}

	return &Decomposition{
		Period:     period,
		Pattern:    pattern,
		Components: components,
	}, nil
}

// centeredMovingAverage returns a moving average of width period centered on
// each point, NaN where the window does not fit. Even periods use a 2xperiod
// average so the window stays symmetric.
func centeredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2

	if period%2 == 0 {
		for i := half; i < n-half; i++ {
			sum := 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		}
	} else {
		for i := half; i < n-half; i++ {
			sum := 0.0
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		}
	}

	return trend
}

// Phase returns the position within one period of training position i.
func (d *Decomposition) Phase(i int) int {
	return i % d.Period
}

// SeasonalAt returns the pattern value for position i, which may lie past the
// end of the training series.
func (d *Decomposition) SeasonalAt(i int) float64 {
	return d.Pattern[d.Phase(i)]
}

// DefinedTrend returns the defined trend values in order together with the
// training position of the last one.
func (d *Decomposition) DefinedTrend() (values []float64, lastPos int) {
	lastPos = -1
	for i, c := range d.Components {
		if c.Trend != nil {
			values = append(values, *c.Trend)
			lastPos = i
		}
	}
	return values, lastPos
}

// DefinedResiduals returns the residuals where the trend is defined.
func (d *Decomposition) DefinedResiduals() []float64 {
	var out []float64
	for _, c := range d.Components {
		if c.Residual != nil {
			out = append(out, *c.Residual)
		}
	}
	return out
}

// Scale returns the mean absolute actual value, the magnitude against which
// floating point noise in the components is measured.
func (d *Decomposition) Scale() float64 {
	if len(d.Components) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range d.Components {
		sum += math.Abs(c.Actual)
	}
	return sum / float64(len(d.Components))
}
