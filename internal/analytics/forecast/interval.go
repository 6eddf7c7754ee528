package forecast

import (
	"math"

	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/decompose"
)

// Growth selects how the interval half-width widens with the forecast step h.
type Growth string

const (
	GrowthSqrt     Growth = "sqrt"     // sqrt(h), random walk of errors
	GrowthConstant Growth = "constant" // flat width across the horizon
	GrowthLinear   Growth = "linear"   // h
)

// DefaultGrowth is used when no growth law is given
const DefaultGrowth = GrowthSqrt

// noiseFloorULPs scales the smallest residual spread that is treated as real
// variability rather than floating point rounding of the components.
const noiseFloorULPs = 64

// ParseGrowth validates a growth law name. Empty means DefaultGrowth.
func ParseGrowth(s string) (Growth, error) {
	switch Growth(s) {
	case "":
		return DefaultGrowth, nil
	case GrowthSqrt, GrowthConstant, GrowthLinear:
		return Growth(s), nil
	default:
		return "", &analytics.InvalidParameterError{
			Name:   "interval_growth",
			Value:  s,
			Reason: "interval_growth must be one of: sqrt, constant, linear",
		}
	}
}

// factor returns the multiplier applied to z*sigma at step h (h >= 1).
func (g Growth) factor(h int) float64 {
	switch g {
	case GrowthConstant:
		return 1
	case GrowthLinear:
		return float64(h)
	default:
		return math.Sqrt(float64(h))
	}
}

// Bounds is the prediction interval for one forecast step
type Bounds struct {
	Lower     float64 `json:"lower_bound"`
	Upper     float64 `json:"upper_bound"`
	HalfWidth float64 `json:"half_width"`
}

// IntervalInfo records the quantities the intervals were built from
type IntervalInfo struct {
	Confidence float64 `json:"confidence_level"`
	Z          float64 `json:"z"`
	Sigma      float64 `json:"sigma"`
	Growth     Growth  `json:"growth"`
}

// ZScore returns the two-sided standard normal quantile for the confidence
// level, so that P(|Z| <= z) = confidence.
func ZScore(confidence float64) (float64, error) {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return 0, &analytics.InvalidParameterError{
			Name:   "confidence_level",
			Value:  confidence,
			Reason: "confidence_level must be in (0, 1)",
		}
	}
	return math.Sqrt2 * math.Erfinv(confidence), nil
}

// HalfWidth returns z * sigma * growth(h).
func HalfWidth(z, sigma float64, growth Growth, h int) float64 {
	return z * sigma * growth.factor(h)
}

// ResidualSigma returns the sample standard deviation of the defined residuals
// of d. Spreads below the rounding noise of the series scale are lifted to that
// noise floor so an exact fit does not yield a zero-width interval that flags
// rounding error.
func ResidualSigma(d *decompose.Decomposition) (float64, error) {
	residuals := d.DefinedResiduals()
	if len(residuals) < 2 {
		return 0, &analytics.InsufficientDataError{
			Need:   2,
			Have:   len(residuals),
			Reason: "residual deviation needs at least two defined residuals",
		}
	}

	mean := 0.0
	for _, r := range residuals {
		mean += r
	}
	mean /= float64(len(residuals))

	sumSq := 0.0
	for _, r := range residuals {
		diff := r - mean
		sumSq += diff * diff
	}
	sigma := math.Sqrt(sumSq / float64(len(residuals)-1))

	floor := noiseFloorULPs * epsilon * d.Scale()
	if sigma < floor {
		sigma = floor
	}
	return sigma, nil
}

// epsilon is the float64 machine epsilon
var epsilon = math.Nextafter(1, 2) - 1

// Intervals builds one symmetric interval per forecast point:
// point ± z(confidence)·σ·growth(step).
func Intervals(d *decompose.Decomposition, points []ForecastPoint, confidence float64, growth Growth) ([]Bounds, IntervalInfo, error) {
	z, err := ZScore(confidence)
	if err != nil {
		return nil, IntervalInfo{}, err
	}
	if growth == "" {
		growth = DefaultGrowth
	}
	if _, err := ParseGrowth(string(growth)); err != nil {
		return nil, IntervalInfo{}, err
	}

	sigma, err := ResidualSigma(d)
	if err != nil {
		return nil, IntervalInfo{}, err
	}

	bounds := make([]Bounds, len(points))
	for i, p := range points {
		step := p.Step
		if step < 1 {
			step = i + 1
		}
		hw := HalfWidth(z, sigma, growth, step)
		bounds[i] = Bounds{
			Lower:     p.Value - hw,
			Upper:     p.Value + hw,
			HalfWidth: hw,
		}
	}

	return bounds, IntervalInfo{
		Confidence: confidence,
		Z:          z,
		Sigma:      sigma,
		Growth:     growth,
	}, nil
}
