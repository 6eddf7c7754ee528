package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/soltixdb/seasonal/internal/analytics"
)

// jsonDocument is the object form accepted by ReadJSON
type jsonDocument struct {
	Observations []analytics.Observation `json:"observations"`
	Values       []float64               `json:"values"`
	StartIndex   *int64                  `json:"start_index"`
}

// ReadJSON reads a series from one of three shapes:
//
//	[1.5, 2.0, ...]
//	[{"time_index": 0, "value": 1.5}, ...]
//	{"observations": [...]} or {"values": [...], "start_index": 0}
func ReadJSON(r io.Reader, cfg Config) (analytics.Series, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return analytics.Series{}, fmt.Errorf("failed to read json: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return analytics.Series{}, ErrNoData
	}

	if data[0] == '[' {
		var values []float64
		if err := json.Unmarshal(data, &values); err == nil {
			return fromValues(cfg.StartIndex, values)
		}
		var observations []analytics.Observation
		if err := json.Unmarshal(data, &observations); err != nil {
			return analytics.Series{}, fmt.Errorf("failed to decode json array: %w", err)
		}
		return fromObservations(observations)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return analytics.Series{}, fmt.Errorf("failed to decode json: %w", err)
	}
	if len(doc.Observations) > 0 {
		return fromObservations(doc.Observations)
	}
	start := cfg.StartIndex
	if doc.StartIndex != nil {
		start = *doc.StartIndex
	}
	return fromValues(start, doc.Values)
}

func fromValues(start int64, values []float64) (analytics.Series, error) {
	if len(values) == 0 {
		return analytics.Series{}, ErrNoData
	}
	return analytics.FromValues(start, values)
}

func fromObservations(observations []analytics.Observation) (analytics.Series, error) {
	if len(observations) == 0 {
		return analytics.Series{}, ErrNoData
	}
	return analytics.NewSeries(observations)
}
