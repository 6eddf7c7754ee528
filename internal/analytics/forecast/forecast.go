// Package forecast extends a seasonal decomposition past the end of its
// training series and builds prediction intervals around the extension.
package forecast

import (
	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/decompose"
)

// DefaultGridStep is the resolution of the alpha/beta grid search
const DefaultGridStep = 0.05

// MinGridStep bounds the grid at 1000x1000 Holt passes
const MinGridStep = 0.001

// ForecastPoint is one step of the extension. Value = Seasonal + Trend.
type ForecastPoint struct {
	TimeIndex int64   `json:"time_index"`
	Step      int     `json:"step"`
	Seasonal  float64 `json:"seasonal"`
	Trend     float64 `json:"trend"`
	Value     float64 `json:"value"`
}

// ModelInfo contains metadata about the fitted trend model
type ModelInfo struct {
	Algorithm  string  `json:"algorithm"`
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	SSE        float64 `json:"sse"`   // one-step-ahead squared error over the trend series
	Level      float64 `json:"level"` // smoothed trend level at the last defined trend point
	Slope      float64 `json:"slope"` // smoothed trend slope at the last defined trend point
	DataPoints int     `json:"data_points"`
}

// Options tunes the trend fit
type Options struct {
	GridStep float64 // alpha/beta grid resolution in (0,1]; zero means DefaultGridStep
}

// Extension is the output of Forecast
type Extension struct {
	Points    []ForecastPoint `json:"points"`
	ModelInfo ModelInfo       `json:"model_info"`
}

// Values returns the point forecasts in order
func (e *Extension) Values() []float64 {
	out := make([]float64, len(e.Points))
	for i, p := range e.Points {
		out[i] = p.Value
	}
	return out
}

// Forecast extends the seasonal and trend components of d by horizon steps past
// the end of training. The seasonal pattern continues cyclically; the trend is
// extrapolated from Holt's linear method fitted to the defined trend values.
func Forecast(d *decompose.Decomposition, training analytics.Series, horizon int, opts Options) (*Extension, error) {
	if horizon < 1 {
		return nil, &analytics.InvalidParameterError{
			Name:   "horizon",
			Value:  horizon,
			Reason: "horizon must be at least 1",
		}
	}
	if len(d.Components) != training.Len() {
		return nil, &analytics.InvalidParameterError{
			Name:   "training",
			Value:  training.Len(),
			Reason: "decomposition is not aligned with the training series",
		}
	}

	gridStep := opts.GridStep
	if gridStep == 0 {
		gridStep = DefaultGridStep
	}
	if gridStep < MinGridStep || gridStep > 1 {
		return nil, &analytics.InvalidParameterError{
			Name:   "grid_step",
			Value:  gridStep,
			Reason: "grid_step must be in [0.001, 1]",
		}
	}

	trend, lastPos := d.DefinedTrend()
	if len(trend) < 2 {
		return nil, &analytics.InsufficientDataError{
			Need:   2,
			Have:   len(trend),
			Reason: "trend fitting needs at least two defined trend points",
		}
	}

	fit := fitHolt(trend, gridStep)

	n := training.Len()
	next := training.NextIndex()
	points := make([]ForecastPoint, horizon)
	for h := 1; h <= horizon; h++ {
		pos := n + h - 1
		seasonal := d.SeasonalAt(pos)
		trendValue := fit.extrapolate(pos - lastPos)
		points[h-1] = ForecastPoint{
			TimeIndex: next + int64(h-1),
			Step:      h,
			Seasonal:  seasonal,
			Trend:     trendValue,
			Value:     seasonal + trendValue,
		}
	}

	return &Extension{
		Points: points,
		ModelInfo: ModelInfo{
			Algorithm:  "classical_additive+holt_linear",
			Alpha:      fit.Alpha,
			Beta:       fit.Beta,
			SSE:        fit.SSE,
			Level:      fit.Level,
			Slope:      fit.Slope,
			DataPoints: len(trend),
		},
	}, nil
}
