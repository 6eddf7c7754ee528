package forecast

import (
	"math"
	"testing"

	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/decompose"
)

// Common test data and helpers for all forecast tests

var weeklyPattern = []float64{100, 100, 100, 100, 100, 50, 50}

// generateTrendSeasonal creates n points of slope*i plus the weekly pattern
func generateTrendSeasonal(n int, slope float64) []float64 {
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = slope*float64(i) + weeklyPattern[i%7]
	}
	return values
}

// generateNoisy creates a seasonal series with a deterministic pseudo-random residual
func generateNoisy(n int) []float64 {
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = 50 + 10*math.Sin(2*math.Pi*float64(i%7)/7) + 4*math.Sin(float64(i)*78.233)
	}
	return values
}

func decomposeValues(t *testing.T, values []float64, period int) (*decompose.Decomposition, analytics.Series) {
	t.Helper()
	s, err := analytics.FromValues(0, values)
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}
	d, err := decompose.Decompose(s, period)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	return d, s
}
