// Package pipeline chains the analytics stages into one all-or-nothing run:
// split, decompose, forecast, interval estimation and anomaly detection.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/anomaly"
	"github.com/soltixdb/seasonal/internal/analytics/decompose"
	"github.com/soltixdb/seasonal/internal/analytics/forecast"
	"github.com/soltixdb/seasonal/internal/logging"
)

// Stage names a step of the run, used in logs and error context
type Stage string

const (
	StageSplit     Stage = "split"
	StageDecompose Stage = "decompose"
	StageForecast  Stage = "forecast"
	StageInterval  Stage = "interval"
	StageDetect    Stage = "detect"
)

// Input is everything a run needs. The pipeline reads no configuration of its own.
type Input struct {
	Series          analytics.Series
	PeriodLength    int
	Horizon         int
	ConfidenceLevel float64
	Growth          forecast.Growth // empty means forecast.DefaultGrowth
	GridStep        float64         // zero means forecast.DefaultGridStep
}

// Point is the verdict for one holdout time index
type Point struct {
	TimeIndex int64               `json:"time_index"`
	Actual    float64             `json:"actual"`
	Forecast  float64             `json:"forecast"`
	Seasonal  float64             `json:"seasonal"`
	Trend     float64             `json:"trend"`
	Lower     float64             `json:"lower_bound"`
	Upper     float64             `json:"upper_bound"`
	Anomalous bool                `json:"anomalous"`
	Type      anomaly.AnomalyType `json:"type,omitempty"`
	Score     float64             `json:"score"`
}

// Result is the complete output of a successful run
type Result struct {
	Points        []Point                  `json:"points"`
	Decomposition *decompose.Decomposition `json:"decomposition"`
	Model         forecast.ModelInfo       `json:"model"`
	Interval      forecast.IntervalInfo    `json:"interval"`
	Accuracy      forecast.Accuracy        `json:"accuracy"`
	AnomalyCount  int                      `json:"anomaly_count"`
	TrainingSize  int                      `json:"training_size"`
}

// Movement reports whether the holdout departs from the expected band
func (r *Result) Movement() bool {
	return r.AnomalyCount > 0
}

// Flags returns the anomalous points only
func (r *Result) Flags() []Point {
	var out []Point
	for _, p := range r.Points {
		if p.Anomalous {
			out = append(out, p)
		}
	}
	return out
}

// Pipeline runs analyses. It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	logger *logging.Logger
}

// New creates a pipeline; a nil logger uses the global one
func New(logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Global()
	}
	return &Pipeline{logger: logger}
}

// stageError adds the stage name while keeping the original error reachable
// through errors.As / errors.Is.
func stageError(stage Stage, err error) error {
	return fmt.Errorf("%s: %w", stage, err)
}

// Run executes every stage in order. The first failure aborts the run and no
// partial result is returned. ctx is checked between stages.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	log := p.logger.WithContext(ctx)

	log.Debug("Pipeline stage", "stage", StageSplit, "points", in.Series.Len(),
		"period", in.PeriodLength, "horizon", in.Horizon)
	training, holdout, err := analytics.Split(in.Series, in.Horizon, in.PeriodLength)
	if err != nil {
		return nil, stageError(StageSplit, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug("Pipeline stage", "stage", StageDecompose, "training", training.Len())
	decomposition, err := decompose.Decompose(training, in.PeriodLength)
	if err != nil {
		return nil, stageError(StageDecompose, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug("Pipeline stage", "stage", StageForecast, "grid_step", in.GridStep)
	ext, err := forecast.Forecast(decomposition, training, in.Horizon, forecast.Options{GridStep: in.GridStep})
	if err != nil {
		return nil, stageError(StageForecast, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	growth, err := forecast.ParseGrowth(string(in.Growth))
	if err != nil {
		return nil, stageError(StageInterval, err)
	}
	log.Debug("Pipeline stage", "stage", StageInterval, "confidence", in.ConfidenceLevel, "growth", growth)
	bounds, info, err := forecast.Intervals(decomposition, ext.Points, in.ConfidenceLevel, growth)
	if err != nil {
		return nil, stageError(StageInterval, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug("Pipeline stage", "stage", StageDetect)
	flags, err := anomaly.Detect(holdout, ext.Points, bounds)
	if err != nil {
		return nil, stageError(StageDetect, err)
	}

	points := make([]Point, len(flags))
	for i, f := range flags {
		fp := ext.Points[i]
		points[i] = Point{
			TimeIndex: f.TimeIndex,
			Actual:    f.Actual,
			Forecast:  fp.Value,
			Seasonal:  fp.Seasonal,
			Trend:     fp.Trend,
			Lower:     bounds[i].Lower,
			Upper:     bounds[i].Upper,
			Anomalous: f.Anomalous,
			Type:      f.Type,
			Score:     f.Score,
		}
	}

	result := &Result{
		Points:        points,
		Decomposition: decomposition,
		Model:         ext.ModelInfo,
		Interval:      info,
		Accuracy:      forecast.Evaluate(holdout.Values(), ext.Values()),
		AnomalyCount:  anomaly.Count(flags),
		TrainingSize:  training.Len(),
	}

	log.Info("Pipeline completed",
		"points", in.Series.Len(),
		"period", in.PeriodLength,
		"horizon", in.Horizon,
		"anomalies", result.AnomalyCount,
		"alpha", result.Model.Alpha,
		"beta", result.Model.Beta,
		"latency_ms", time.Since(start).Milliseconds())

	return result, nil
}
