// Package source loads an observation series from files or readers. It is the
// data-acquisition side of the analyzer; everything it needs is passed in
// through Config.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soltixdb/seasonal/internal/analytics"
)

// Format is the encoding of a series file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Config controls how a series is read
type Config struct {
	Path        string // File to read; "-" reads stdin
	Format      Format // csv or json; empty infers from the file extension
	ValueColumn string // CSV value column (default: "y", then "value")
	IndexColumn string // CSV time index column (optional)
	Delimiter   rune   // CSV field delimiter (default: ',')
	HasHeader   bool   // CSV has a header row
	StartIndex  int64  // First time index when the input carries none
}

// DefaultConfig returns default loader settings
func DefaultConfig() Config {
	return Config{
		ValueColumn: "y",
		Delimiter:   ',',
		HasHeader:   true,
	}
}

// Load reads the series described by cfg
func Load(cfg Config) (analytics.Series, error) {
	var r io.Reader
	if cfg.Path == "-" {
		r = os.Stdin
	} else {
		file, err := os.Open(cfg.Path)
		if err != nil {
			return analytics.Series{}, fmt.Errorf("failed to open %s: %w", cfg.Path, err)
		}
		defer func() { _ = file.Close() }()
		r = file
	}

	format := cfg.Format
	if format == "" {
		format = inferFormat(cfg.Path)
	}

	return Read(r, format, cfg)
}

// Read decodes a series from r
func Read(r io.Reader, format Format, cfg Config) (analytics.Series, error) {
	switch format {
	case FormatCSV, "":
		return ReadCSV(r, cfg)
	case FormatJSON:
		return ReadJSON(r, cfg)
	default:
		return analytics.Series{}, fmt.Errorf("unsupported source format: %s (supported: csv, json)", format)
	}
}

func inferFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}
