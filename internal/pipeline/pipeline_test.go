package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/anomaly"
	"github.com/soltixdb/seasonal/internal/analytics/forecast"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weeklyPattern = []float64{100, 100, 100, 100, 100, 50, 50}

// weeklySeries returns weeks repetitions of the weekly pattern
func weeklySeries(weeks int) []float64 {
	values := make([]float64, 0, weeks*7)
	for w := 0; w < weeks; w++ {
		values = append(values, weeklyPattern...)
	}
	return values
}

func newInput(t *testing.T, values []float64) Input {
	t.Helper()
	s, err := analytics.FromValues(0, values)
	require.NoError(t, err)
	return Input{
		Series:          s,
		PeriodLength:    7,
		Horizon:         7,
		ConfidenceLevel: 0.95,
	}
}

func newTestPipeline() *Pipeline {
	return New(logging.NewNop())
}

func TestRun_PerfectPatternHasNoAnomalies(t *testing.T) {
	// 42 training days plus a holdout week equal to the pattern
	in := newInput(t, weeklySeries(7))

	result, err := newTestPipeline().Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 42, result.TrainingSize)
	require.Len(t, result.Points, 7)
	for i, p := range result.Points {
		assert.InDelta(t, weeklyPattern[i], p.Forecast, 1e-9, "forecast at step %d", i+1)
		assert.False(t, p.Anomalous, "step %d must not be anomalous", i+1)
		assert.Equal(t, int64(42+i), p.TimeIndex)
	}
	assert.Equal(t, 0, result.AnomalyCount)
	assert.False(t, result.Movement())
	assert.Empty(t, result.Flags())

	for i, c := range result.Decomposition.Components {
		if c.Residual != nil {
			assert.InDelta(t, 0, *c.Residual, 1e-9, "residual at %d", i)
		}
		if c.Trend != nil {
			assert.InDelta(t, weeklyPattern[i%7], c.Seasonal+*c.Trend, 1e-9, "seasonal+trend at %d", i)
		}
	}
	assert.InDelta(t, 0, result.Accuracy.MAE, 1e-9)
}

func TestRun_ForcedDropIsFlagged(t *testing.T) {
	values := weeklySeries(7)
	values[42+3] = 10

	result, err := newTestPipeline().Run(context.Background(), newInput(t, values))
	require.NoError(t, err)

	for i, p := range result.Points {
		if i == 3 {
			assert.True(t, p.Anomalous)
			assert.Equal(t, anomaly.AnomalyTypeDrop, p.Type)
			assert.Greater(t, p.Score, 0.0)
			continue
		}
		assert.False(t, p.Anomalous, "step %d must not be anomalous", i+1)
	}
	assert.Equal(t, 1, result.AnomalyCount)
	assert.True(t, result.Movement())
	require.Len(t, result.Flags(), 1)
	assert.Equal(t, int64(45), result.Flags()[0].TimeIndex)
}

func TestRun_ShortSeriesIsInsufficient(t *testing.T) {
	in := newInput(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	in.Horizon = 1

	result, err := newTestPipeline().Run(context.Background(), in)
	assert.Nil(t, result)

	var insufficient *analytics.InsufficientDataError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.True(t, errors.Is(err, analytics.ErrInsufficientData))
}

func TestRun_ConfidenceOutOfRange(t *testing.T) {
	in := newInput(t, weeklySeries(7))
	in.ConfidenceLevel = 1.5

	result, err := newTestPipeline().Run(context.Background(), in)
	assert.Nil(t, result)

	var invalid *analytics.InvalidParameterError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, "confidence_level", invalid.Name)
}

func TestRun_StagesFailInOrder(t *testing.T) {
	// A short series fails at split even when the confidence level is also bad
	in := newInput(t, weeklySeries(2)[:10])
	in.ConfidenceLevel = 1.5

	_, err := newTestPipeline().Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, analytics.ErrInsufficientData), "got %v", err)
	assert.True(t, strings.HasPrefix(err.Error(), string(StageSplit)+": "), "got %v", err)
}

func TestRun_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
		param  string
	}{
		{"period below two", func(in *Input) { in.PeriodLength = 1 }, "period_length"},
		{"zero horizon", func(in *Input) { in.Horizon = 0 }, "horizon"},
		{"horizon not below training", func(in *Input) { in.Horizon = 25 }, "horizon"},
		{"unknown growth", func(in *Input) { in.Growth = "cubic" }, "interval_growth"},
		{"negative grid step", func(in *Input) { in.GridStep = -0.1 }, "grid_step"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInput(t, weeklySeries(7))
			tt.mutate(&in)

			result, err := newTestPipeline().Run(context.Background(), in)
			assert.Nil(t, result)

			var invalid *analytics.InvalidParameterError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.param, invalid.Name)
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestPipeline().Run(ctx, newInput(t, weeklySeries(7)))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Deterministic(t *testing.T) {
	values := make([]float64, 70)
	for i := range values {
		values[i] = 200 + 0.8*float64(i) + weeklyPattern[i%7] + 6*math.Sin(float64(i)*12.9898)
	}
	in := newInput(t, values)
	p := newTestPipeline()

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.Points, second.Points)
	assert.Equal(t, first.Model, second.Model)
	assert.Equal(t, first.Interval, second.Interval)
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	p := newTestPipeline()
	clean := newInput(t, weeklySeries(7))

	dropped := weeklySeries(7)
	dropped[44] = 10
	anomalous := newInput(t, dropped)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r, err := p.Run(context.Background(), clean)
			if err == nil && r.AnomalyCount != 0 {
				err = errors.New("clean run reported anomalies")
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			r, err := p.Run(context.Background(), anomalous)
			if err == nil && r.AnomalyCount != 1 {
				err = errors.New("anomalous run did not report exactly one anomaly")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRun_IntervalsWidenWithStep(t *testing.T) {
	values := make([]float64, 63)
	for i := range values {
		values[i] = 80 + weeklyPattern[i%7] + 3*math.Sin(float64(i)*78.233)
	}
	in := newInput(t, values)
	in.Growth = forecast.GrowthLinear

	result, err := newTestPipeline().Run(context.Background(), in)
	require.NoError(t, err)

	prev := 0.0
	for _, p := range result.Points {
		width := p.Upper - p.Lower
		assert.GreaterOrEqual(t, width, prev)
		assert.InDelta(t, p.Forecast, (p.Upper+p.Lower)/2, 1e-9)
		prev = width
	}
	assert.Equal(t, forecast.GrowthLinear, result.Interval.Growth)
}
