package forecast

import (
	"errors"
	"math"
	"testing"

	"github.com/soltixdb/seasonal/internal/analytics"
)

func TestZScore(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   float64
	}{
		{0.95, 1.959964},
		{0.90, 1.644854},
		{0.99, 2.575829},
		{0.6826894921, 1.0},
	}

	for _, tt := range tests {
		z, err := ZScore(tt.confidence)
		if err != nil {
			t.Fatalf("ZScore(%v) failed: %v", tt.confidence, err)
		}
		if math.Abs(z-tt.expected) > 1e-6 {
			t.Errorf("ZScore(%v) = %v, expected %v", tt.confidence, z, tt.expected)
		}
	}
}

func TestZScore_OutOfRange(t *testing.T) {
	for _, cl := range []float64{0, 1, 1.5, -0.2, math.NaN()} {
		_, err := ZScore(cl)
		var ipe *analytics.InvalidParameterError
		if !errors.As(err, &ipe) {
			t.Errorf("ZScore(%v): expected InvalidParameterError, got %v", cl, err)
			continue
		}
		if ipe.Name != "confidence_level" {
			t.Errorf("Unexpected parameter name %q", ipe.Name)
		}
	}
}

func TestHalfWidth_MonotoneGrowth(t *testing.T) {
	for _, g := range []Growth{GrowthSqrt, GrowthConstant, GrowthLinear} {
		prev := 0.0
		for h := 1; h <= 30; h++ {
			hw := HalfWidth(1.96, 2.5, g, h)
			if hw < prev {
				t.Errorf("%s: half width decreased at h=%d (%v < %v)", g, h, hw, prev)
			}
			prev = hw
		}
	}

	if got := HalfWidth(2, 3, GrowthSqrt, 4); got != 12 {
		t.Errorf("Expected sqrt growth 2*3*2 = 12, got %v", got)
	}
	if got := HalfWidth(2, 3, GrowthConstant, 4); got != 6 {
		t.Errorf("Expected constant growth 6, got %v", got)
	}
	if got := HalfWidth(2, 3, GrowthLinear, 4); got != 24 {
		t.Errorf("Expected linear growth 24, got %v", got)
	}
}

func TestParseGrowth(t *testing.T) {
	g, err := ParseGrowth("")
	if err != nil || g != DefaultGrowth {
		t.Errorf("Empty growth should default to %s, got %s (%v)", DefaultGrowth, g, err)
	}
	if _, err := ParseGrowth("exponential"); !errors.Is(err, analytics.ErrInvalidParameter) {
		t.Errorf("Expected InvalidParameterError for unknown growth, got %v", err)
	}
}

func TestIntervals_SymmetricAroundForecast(t *testing.T) {
	d, s := decomposeValues(t, generateNoisy(63), 7)
	ext, err := Forecast(d, s, 7, Options{})
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	bounds, info, err := Intervals(d, ext.Points, 0.95, GrowthSqrt)
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}
	if len(bounds) != len(ext.Points) {
		t.Fatalf("Expected one interval per point")
	}

	sigma, _ := ResidualSigma(d)
	if info.Sigma != sigma || math.Abs(info.Z-1.959964) > 1e-6 {
		t.Errorf("Unexpected interval info %+v", info)
	}

	for i, b := range bounds {
		p := ext.Points[i].Value
		if math.Abs((p-b.Lower)-(b.Upper-p)) > 1e-9 {
			t.Errorf("Interval %d is not symmetric", i)
		}
		expected := info.Z * sigma * math.Sqrt(float64(i+1))
		if math.Abs(b.HalfWidth-expected) > 1e-9 {
			t.Errorf("Interval %d: half width %v, expected %v", i, b.HalfWidth, expected)
		}
		if i > 0 && b.HalfWidth < bounds[i-1].HalfWidth {
			t.Errorf("Half width must not shrink with the horizon")
		}
	}
}

func TestIntervals_InvalidConfidence(t *testing.T) {
	d, s := decomposeValues(t, generateNoisy(30), 7)
	ext, _ := Forecast(d, s, 3, Options{})

	_, _, err := Intervals(d, ext.Points, 1.5, GrowthSqrt)
	if !errors.Is(err, analytics.ErrInvalidParameter) {
		t.Fatalf("Expected InvalidParameterError, got %v", err)
	}

	_, _, err = Intervals(d, ext.Points, 0.95, Growth("cubic"))
	if !errors.Is(err, analytics.ErrInvalidParameter) {
		t.Fatalf("Expected InvalidParameterError for growth, got %v", err)
	}
}

func TestResidualSigma_NoiseFloor(t *testing.T) {
	d, _ := decomposeValues(t, generateTrendSeasonal(42, 0), 7)
	sigma, err := ResidualSigma(d)
	if err != nil {
		t.Fatalf("ResidualSigma failed: %v", err)
	}
	if sigma <= 0 {
		t.Errorf("Exact fit should still yield a positive noise floor, got %v", sigma)
	}
	if sigma > 1e-9 {
		t.Errorf("Noise floor should be negligible relative to the data, got %v", sigma)
	}
}
