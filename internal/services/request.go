package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/forecast"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/pipeline"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AnalysisRequest is the transport-neutral analysis request shared by the HTTP
// API, the queue worker and the CLI. Nil parameters take the configured
// defaults; explicit values are passed through for the core to range-check.
type AnalysisRequest struct {
	Name            string                  `json:"name,omitempty" default:"series" validate:"max=128"`
	Observations    []analytics.Observation `json:"observations,omitempty" validate:"required_without=Values,excluded_with=Values"`
	Values          []float64               `json:"values,omitempty" validate:"required_without=Observations"`
	StartIndex      int64                   `json:"start_index,omitempty"`
	PeriodLength    *int                    `json:"period_length,omitempty"`
	Horizon         *int                    `json:"horizon,omitempty"`
	ConfidenceLevel *float64                `json:"confidence_level,omitempty"`
	IntervalGrowth  *string                 `json:"interval_growth,omitempty"`
}

// AnalysisParams are the effective parameters of one analysis
type AnalysisParams struct {
	PeriodLength    int     `json:"period_length"`
	Horizon         int     `json:"horizon"`
	ConfidenceLevel float64 `json:"confidence_level"`
	IntervalGrowth  string  `json:"interval_growth"`
	GridStep        float64 `json:"grid_step"`
}

// ParamsFromConfig returns the analysis defaults of cfg
func ParamsFromConfig(cfg config.AnalysisConfig) AnalysisParams {
	return AnalysisParams{
		PeriodLength:    cfg.PeriodLength,
		Horizon:         cfg.Horizon,
		ConfidenceLevel: cfg.ConfidenceLevel,
		IntervalGrowth:  cfg.IntervalGrowth,
		GridStep:        cfg.GridStep,
	}
}

// DecodeRequest parses a JSON request body
func DecodeRequest(data []byte) (*AnalysisRequest, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, NewServiceErrorWithDetails(CodeInvalidJSON, "Failed to parse JSON body",
			map[string]interface{}{"error": err.Error()})
	}
	return &req, nil
}

// Len returns the number of observations carried by the request
func (r *AnalysisRequest) Len() int {
	if len(r.Observations) > 0 {
		return len(r.Observations)
	}
	return len(r.Values)
}

// Normalize fills missing parameters from cfg and validates the request shape.
// Range checks on the parameters are left to the pipeline so that every
// transport reports them as INVALID_PARAMETER.
func (r *AnalysisRequest) Normalize(ctx context.Context, cfg config.AnalysisConfig) error {
	if r.PeriodLength == nil {
		r.PeriodLength = &cfg.PeriodLength
	}
	if r.Horizon == nil {
		r.Horizon = &cfg.Horizon
	}
	if r.ConfidenceLevel == nil {
		r.ConfidenceLevel = &cfg.ConfidenceLevel
	}
	if r.IntervalGrowth == nil {
		r.IntervalGrowth = &cfg.IntervalGrowth
	}

	if err := defaults.Set(r); err != nil {
		return NewServiceError(CodeInternal, fmt.Sprintf("failed to apply defaults: %v", err))
	}

	return r.Validate(ctx, cfg)
}

// Validate checks the request shape and size without filling defaults, so a
// queued request still takes the worker's configuration.
func (r *AnalysisRequest) Validate(ctx context.Context, cfg config.AnalysisConfig) error {
	if err := validate.StructCtx(ctx, r); err != nil {
		return validationError(err)
	}

	if cfg.MaxObservations > 0 && r.Len() > cfg.MaxObservations {
		return NewServiceErrorWithDetails(CodeValidationFailed, "Request validation failed", map[string]interface{}{
			"fields": []FieldError{{
				Field:   "observations",
				Tag:     "max",
				Message: fmt.Sprintf("series must have at most %d observations", cfg.MaxObservations),
				Param:   fmt.Sprintf("%d", cfg.MaxObservations),
			}},
		})
	}

	return nil
}

// Params returns the effective parameters. Call after Normalize.
func (r *AnalysisRequest) Params(gridStep float64) AnalysisParams {
	return AnalysisParams{
		PeriodLength:    *r.PeriodLength,
		Horizon:         *r.Horizon,
		ConfidenceLevel: *r.ConfidenceLevel,
		IntervalGrowth:  *r.IntervalGrowth,
		GridStep:        gridStep,
	}
}

// Input builds the pipeline input. Call after Normalize.
func (r *AnalysisRequest) Input(gridStep float64) (pipeline.Input, error) {
	var (
		series analytics.Series
		err    error
	)
	if len(r.Observations) > 0 {
		series, err = analytics.NewSeries(r.Observations)
	} else {
		series, err = analytics.FromValues(r.StartIndex, r.Values)
	}
	if err != nil {
		return pipeline.Input{}, err
	}

	params := r.Params(gridStep)
	return pipeline.Input{
		Series:          series,
		PeriodLength:    params.PeriodLength,
		Horizon:         params.Horizon,
		ConfidenceLevel: params.ConfidenceLevel,
		Growth:          forecast.Growth(params.IntervalGrowth),
		GridStep:        params.GridStep,
	}, nil
}

// FieldError describes one failed validation rule
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func validationError(err error) *ServiceError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewServiceError(CodeValidationFailed, err.Error())
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
			Param:   fe.Param(),
		})
	}

	return NewServiceErrorWithDetails(CodeValidationFailed, "Request validation failed",
		map[string]interface{}{"fields": fields})
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required_without":
		return fmt.Sprintf("%s is required when %s is absent", field, jsonName(fe.Param()))
	case "excluded_with":
		return fmt.Sprintf("%s cannot be combined with %s", field, jsonName(fe.Param()))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// jsonName maps the Go field names used in cross-field tags to their JSON names
func jsonName(goField string) string {
	f, ok := reflect.TypeOf(AnalysisRequest{}).FieldByName(goField)
	if !ok {
		return goField
	}
	return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
}
