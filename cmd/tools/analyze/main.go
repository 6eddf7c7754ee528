// Command analyze runs one seasonal analysis over a CSV or JSON file and prints
// the result as JSON.
//
//	analyze -input sessions.csv -value-column y -period 7 -horizon 7
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/services"
	"github.com/soltixdb/seasonal/internal/source"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 when the analysis
// fails, 2 on usage errors
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	input := fs.String("input", "", "Series file (csv or json); - reads stdin")
	format := fs.String("format", "", "Input format: csv, json (default: inferred from extension)")
	valueColumn := fs.String("value-column", "y", "CSV value column")
	indexColumn := fs.String("index-column", "", "CSV time index column (optional)")
	startIndex := fs.Int64("start-index", 0, "First time index when the input carries none")
	period := fs.Int("period", 0, "Season length in observations")
	horizon := fs.Int("horizon", 0, "Holdout length")
	confidence := fs.Float64("confidence", 0, "Two-sided interval coverage in (0, 1)")
	growth := fs.String("growth", "", "Interval growth: sqrt, constant, linear")
	name := fs.String("name", "", "Series name reported in the result")
	configPath := fs.String("config", "", "Path to configuration file")
	pretty := fs.Bool("pretty", false, "Indent the JSON output")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(stderr, "Error: -input is required")
		fs.Usage()
		return 2
	}

	cfg := config.DefaultConfig()
	logger := logging.NewWithWriter(stderr, zerolog.WarnLevel)
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to load config: %v\n", err)
			return 2
		}
		cfg = loaded
		if logger, err = logging.NewFromConfig(cfg.Logging); err != nil {
			fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
			return 2
		}
	}

	srcCfg := source.DefaultConfig()
	srcCfg.Path = *input
	srcCfg.Format = source.Format(*format)
	srcCfg.ValueColumn = *valueColumn
	srcCfg.IndexColumn = *indexColumn
	srcCfg.StartIndex = *startIndex

	series, err := source.Load(srcCfg)
	if err != nil {
		return fail(stderr, services.FromError(err))
	}

	req := &services.AnalysisRequest{
		Name:         *name,
		Observations: series.Observations(),
	}
	// Only flags given on the command line override the configured defaults
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "period":
			req.PeriodLength = period
		case "horizon":
			req.Horizon = horizon
		case "confidence":
			req.ConfidenceLevel = confidence
		case "growth":
			req.IntervalGrowth = growth
		}
	})

	svc := services.NewAnalysisService(logger, cfg, nil, nil)
	resp, err := svc.Execute(context.Background(), req)
	if err != nil {
		return fail(stderr, services.FromError(err))
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintf(stderr, "Error: failed to write result: %v\n", err)
		return 1
	}
	return 0
}

func fail(stderr io.Writer, svcErr *services.ServiceError) int {
	data, err := json.Marshal(map[string]*services.ServiceError{"error": svcErr})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", svcErr)
		return 1
	}
	fmt.Fprintln(stderr, string(data))
	return 1
}
