package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/analytics/anomaly"
	"github.com/soltixdb/seasonal/internal/analytics/decompose"
	"github.com/soltixdb/seasonal/internal/analytics/forecast"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/metrics"
	"github.com/soltixdb/seasonal/internal/pipeline"
	"github.com/soltixdb/seasonal/internal/queue"
)

// AnalysisService handles analysis business logic
type AnalysisService struct {
	logger    *logging.Logger
	pipeline  *pipeline.Pipeline
	analysis  config.AnalysisConfig
	alerts    config.AlertsConfig
	publisher queue.Publisher
	metrics   *metrics.Recorder
}

// NewAnalysisService creates a new AnalysisService. publisher and recorder may
// be nil; alerts are then not published and nothing is recorded.
func NewAnalysisService(
	logger *logging.Logger,
	cfg *config.Config,
	publisher queue.Publisher,
	recorder *metrics.Recorder,
) *AnalysisService {
	return &AnalysisService{
		logger:    logger,
		pipeline:  pipeline.New(logger),
		analysis:  cfg.Analysis,
		alerts:    cfg.Alerts,
		publisher: publisher,
		metrics:   recorder,
	}
}

// AnalysisResponse represents the complete analysis response
type AnalysisResponse struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Movement      bool                     `json:"movement"`
	AnomalyCount  int                      `json:"anomaly_count"`
	Params        AnalysisParams           `json:"params"`
	TrainingSize  int                      `json:"training_size"`
	Points        []pipeline.Point         `json:"points"`
	Decomposition *decompose.Decomposition `json:"decomposition"`
	Model         forecast.ModelInfo       `json:"model"`
	Interval      forecast.IntervalInfo    `json:"interval"`
	Accuracy      forecast.Accuracy        `json:"accuracy"`
}

// AnomalyAlert is published once per flagged holdout point
type AnomalyAlert struct {
	AnalysisID string              `json:"analysis_id"`
	Name       string              `json:"name"`
	TimeIndex  int64               `json:"time_index"`
	Actual     float64             `json:"actual"`
	Forecast   float64             `json:"forecast"`
	Lower      float64             `json:"lower_bound"`
	Upper      float64             `json:"upper_bound"`
	Type       anomaly.AnomalyType `json:"type"`
	Score      float64             `json:"score"`
	DetectedAt string              `json:"detected_at"`
}

// Defaults returns the parameters applied to requests that omit them
func (s *AnalysisService) Defaults() AnalysisParams {
	return ParamsFromConfig(s.analysis)
}

// Validate rejects a malformed request before it is queued. Errors are *ServiceError.
func (s *AnalysisService) Validate(ctx context.Context, req *AnalysisRequest) error {
	if err := req.Validate(ctx, s.analysis); err != nil {
		return FromError(err)
	}
	return nil
}

// Execute runs one analysis. Errors are always *ServiceError.
func (s *AnalysisService) Execute(ctx context.Context, req *AnalysisRequest) (*AnalysisResponse, error) {
	startExec := time.Now()
	log := s.logger.WithContext(ctx)

	if err := req.Normalize(ctx, s.analysis); err != nil {
		s.metrics.ObservePipeline(metrics.OutcomeInvalid, time.Since(startExec))
		log.Warn("Analysis request rejected", "name", req.Name, "error", err)
		return nil, FromError(err)
	}

	in, err := req.Input(s.analysis.GridStep)
	if err != nil {
		s.metrics.ObservePipeline(outcomeFor(err), time.Since(startExec))
		log.Warn("Analysis series rejected", "name", req.Name, "error", err)
		return nil, FromError(err)
	}

	result, err := s.pipeline.Run(ctx, in)
	if err != nil {
		s.metrics.ObservePipeline(outcomeFor(err), time.Since(startExec))
		log.Warn("Analysis failed",
			"name", req.Name,
			"points", req.Len(),
			"error", err)
		return nil, FromError(err)
	}
	s.metrics.ObservePipeline(metrics.OutcomeSuccess, time.Since(startExec))

	resp := &AnalysisResponse{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Movement:      result.Movement(),
		AnomalyCount:  result.AnomalyCount,
		Params:        req.Params(s.analysis.GridStep),
		TrainingSize:  result.TrainingSize,
		Points:        result.Points,
		Decomposition: result.Decomposition,
		Model:         result.Model,
		Interval:      result.Interval,
		Accuracy:      result.Accuracy,
	}

	flagged := result.Flags()
	for _, p := range flagged {
		s.metrics.RecordAnomaly(string(p.Type))
	}
	if len(flagged) > 0 {
		s.publishAlerts(ctx, resp, flagged)
	}

	log.Info("Analysis completed",
		"id", resp.ID,
		"name", resp.Name,
		"points", req.Len(),
		"movement", resp.Movement,
		"anomalies", resp.AnomalyCount,
		"latency_ms", time.Since(startExec).Milliseconds())

	return resp, nil
}

// publishAlerts sends one alert per flagged point. A publish failure does not
// fail the analysis.
func (s *AnalysisService) publishAlerts(ctx context.Context, resp *AnalysisResponse, flagged []pipeline.Point) {
	if !s.alerts.Enabled || s.publisher == nil {
		return
	}

	detectedAt := time.Now().UTC().Format(time.RFC3339)
	messages := make([]queue.BatchMessage, 0, len(flagged))
	for _, p := range flagged {
		data, err := json.Marshal(AnomalyAlert{
			AnalysisID: resp.ID,
			Name:       resp.Name,
			TimeIndex:  p.TimeIndex,
			Actual:     p.Actual,
			Forecast:   p.Forecast,
			Lower:      p.Lower,
			Upper:      p.Upper,
			Type:       p.Type,
			Score:      p.Score,
			DetectedAt: detectedAt,
		})
		if err != nil {
			s.logger.Error("Failed to encode anomaly alert", "id", resp.ID, "error", err)
			continue
		}
		messages = append(messages, queue.BatchMessage{Subject: s.alerts.Subject, Data: data})
	}

	n, err := s.publisher.PublishBatch(ctx, messages)
	if err != nil {
		s.logger.Warn("Failed to publish anomaly alerts",
			"id", resp.ID,
			"subject", s.alerts.Subject,
			"published", n,
			"total", len(messages),
			"error", err)
		return
	}
	s.logger.Debug("Anomaly alerts published", "id", resp.ID, "count", n)
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, analytics.ErrInsufficientData):
		return metrics.OutcomeInsufficient
	case errors.Is(err, analytics.ErrInvalidParameter):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
