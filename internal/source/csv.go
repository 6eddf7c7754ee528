package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soltixdb/seasonal/internal/analytics"
)

// ErrNoData is returned when the input holds no observations
var ErrNoData = errors.New("no observations found in input")

// ReadCSV reads a series from CSV. Rows are taken in file order. With a header,
// the value column is cfg.ValueColumn; only the default "y" falls back to
// "value" and then the last column. The optional index column is cfg.IndexColumn. Without a
// header, a single column is the value and two columns are index,value.
//
// Missing or unparsable values are errors: dropping a row would silently
// shift every later observation by one period phase.
func ReadCSV(r io.Reader, cfg Config) (analytics.Series, error) {
	reader := csv.NewReader(r)
	if cfg.Delimiter != 0 {
		reader.Comma = cfg.Delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	valueIdx, indexIdx := -1, -1

	if cfg.HasHeader {
		header, err := reader.Read()
		if err == io.EOF {
			return analytics.Series{}, ErrNoData
		}
		if err != nil {
			return analytics.Series{}, fmt.Errorf("failed to read csv header: %w", err)
		}
		valueIdx, indexIdx, err = locateColumns(header, cfg)
		if err != nil {
			return analytics.Series{}, err
		}
	}

	var observations []analytics.Observation
	line := 1
	if cfg.HasHeader {
		line = 2
	}

	for ; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return analytics.Series{}, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		vi, ii := valueIdx, indexIdx
		if !cfg.HasHeader {
			vi = len(record) - 1
			if len(record) > 1 {
				ii = 0
			}
		}
		if vi >= len(record) {
			return analytics.Series{}, fmt.Errorf("csv line %d: missing value column", line)
		}

		value, err := parseValue(record[vi])
		if err != nil {
			return analytics.Series{}, fmt.Errorf("csv line %d: %w", line, err)
		}

		timeIndex := cfg.StartIndex + int64(len(observations))
		if ii >= 0 && ii < len(record) {
			timeIndex, err = strconv.ParseInt(clean(record[ii]), 10, 64)
			if err != nil {
				return analytics.Series{}, fmt.Errorf("csv line %d: invalid time index %q", line, record[ii])
			}
		}

		observations = append(observations, analytics.Observation{TimeIndex: timeIndex, Value: value})
	}

	if len(observations) == 0 {
		return analytics.Series{}, ErrNoData
	}

	return analytics.NewSeries(observations)
}

func locateColumns(header []string, cfg Config) (valueIdx, indexIdx int, err error) {
	valueIdx, indexIdx = -1, -1
	names := make(map[string]int, len(header))
	for i, h := range header {
		names[clean(h)] = i
	}

	if cfg.ValueColumn != "" {
		i, ok := names[cfg.ValueColumn]
		switch {
		case ok:
			valueIdx = i
		case cfg.ValueColumn != DefaultConfig().ValueColumn:
			// Only the default column name may fall back to the candidates below
			return -1, -1, fmt.Errorf("value column %q not found in csv header", cfg.ValueColumn)
		}
	}
	if valueIdx == -1 {
		for _, candidate := range []string{"y", "value", "Value"} {
			if i, ok := names[candidate]; ok {
				valueIdx = i
				break
			}
		}
	}
	if valueIdx == -1 {
		valueIdx = len(header) - 1
	}

	if cfg.IndexColumn != "" {
		i, ok := names[cfg.IndexColumn]
		if !ok {
			return -1, -1, fmt.Errorf("index column %q not found in csv header", cfg.IndexColumn)
		}
		indexIdx = i
	} else if i, ok := names["time_index"]; ok {
		indexIdx = i
	}

	return valueIdx, indexIdx, nil
}

func parseValue(raw string) (float64, error) {
	s := clean(raw)
	switch s {
	case "", "NA", "NaN", "null":
		return 0, fmt.Errorf("missing value %q", raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", raw)
	}
	return v, nil
}

func clean(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\""))
}
