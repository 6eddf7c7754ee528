package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/soltixdb/seasonal/internal/analytics"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/metrics"
	"github.com/soltixdb/seasonal/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weeklyPattern = []float64{100, 100, 100, 100, 100, 50, 50}

func weeklySeries(weeks int) []float64 {
	values := make([]float64, 0, weeks*7)
	for w := 0; w < weeks; w++ {
		values = append(values, weeklyPattern...)
	}
	return values
}

// recordingPublisher captures published batches
type recordingPublisher struct {
	mu       sync.Mutex
	messages []queue.BatchMessage
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.PublishBatch(ctx, []queue.BatchMessage{{Subject: subject, Data: data}})
	return err
}

func (p *recordingPublisher) PublishBatch(_ context.Context, messages []queue.BatchMessage) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, messages...)
	return len(messages), nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestService(t *testing.T, publisher queue.Publisher) (*AnalysisService, *prometheus.Registry) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Alerts.Enabled = true
	reg := prometheus.NewRegistry()
	return NewAnalysisService(logging.NewNop(), cfg, publisher, metrics.New(reg)), reg
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }

// counterValue reads one labelled counter from the registry, zero if absent
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestAnalysisService_Execute_NoMovement(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)

	resp, err := svc.Execute(context.Background(), &AnalysisRequest{Values: weeklySeries(7)})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "series", resp.Name)
	assert.False(t, resp.Movement)
	assert.Equal(t, 0, resp.AnomalyCount)
	assert.Equal(t, 42, resp.TrainingSize)
	require.Len(t, resp.Points, 7)
	for i, p := range resp.Points {
		assert.InDelta(t, weeklyPattern[i], p.Forecast, 1e-9)
	}
	assert.Equal(t, AnalysisParams{
		PeriodLength:    7,
		Horizon:         7,
		ConfidenceLevel: 0.95,
		IntervalGrowth:  "sqrt",
		GridStep:        0.05,
	}, resp.Params)
	assert.Empty(t, pub.messages)
}

func TestAnalysisService_Execute_DropPublishesAlert(t *testing.T) {
	pub := &recordingPublisher{}
	svc, reg := newTestService(t, pub)

	values := weeklySeries(7)
	values[45] = 10

	resp, err := svc.Execute(context.Background(), &AnalysisRequest{Name: "sessions", Values: values})
	require.NoError(t, err)

	assert.True(t, resp.Movement)
	assert.Equal(t, 1, resp.AnomalyCount)
	assert.True(t, resp.Points[3].Anomalous)
	assert.Equal(t, "drop", string(resp.Points[3].Type))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "seasonal.alerts", pub.messages[0].Subject)

	var alert AnomalyAlert
	require.NoError(t, json.Unmarshal(pub.messages[0].Data, &alert))
	assert.Equal(t, resp.ID, alert.AnalysisID)
	assert.Equal(t, "sessions", alert.Name)
	assert.Equal(t, int64(45), alert.TimeIndex)
	assert.Equal(t, 10.0, alert.Actual)
	assert.NotEmpty(t, alert.DetectedAt)

	assert.Equal(t, 1.0, counterValue(t, reg, "seasonal_anomalies_total", "drop"))
	assert.Equal(t, 1.0, counterValue(t, reg, "seasonal_pipeline_runs_total", metrics.OutcomeSuccess))
}

func TestAnalysisService_Execute_AlertFailureDoesNotFailAnalysis(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, pub)

	values := weeklySeries(7)
	values[45] = 10

	resp, err := svc.Execute(context.Background(), &AnalysisRequest{Values: values})
	require.NoError(t, err)
	assert.True(t, resp.Movement)
}

func TestAnalysisService_Execute_AlertsDisabled(t *testing.T) {
	pub := &recordingPublisher{}
	cfg := config.DefaultConfig()
	svc := NewAnalysisService(logging.NewNop(), cfg, pub, nil)

	values := weeklySeries(7)
	values[45] = 10

	_, err := svc.Execute(context.Background(), &AnalysisRequest{Values: values})
	require.NoError(t, err)
	assert.Empty(t, pub.messages)
}

func TestAnalysisService_Execute_Observations(t *testing.T) {
	svc, _ := newTestService(t, nil)

	values := weeklySeries(7)
	obs := make([]analytics.Observation, len(values))
	for i, v := range values {
		obs[i] = analytics.Observation{TimeIndex: int64(1000 + i), Value: v}
	}

	resp, err := svc.Execute(context.Background(), &AnalysisRequest{Observations: obs})
	require.NoError(t, err)
	assert.Equal(t, int64(1042), resp.Points[0].TimeIndex)
}

func TestAnalysisService_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      *AnalysisRequest
		wantCode string
	}{
		{
			name:     "insufficient data",
			req:      &AnalysisRequest{Values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
			wantCode: CodeInsufficientData,
		},
		{
			name:     "confidence out of range",
			req:      &AnalysisRequest{Values: weeklySeries(7), ConfidenceLevel: floatPtr(1.5)},
			wantCode: CodeInvalidParameter,
		},
		{
			name:     "explicit zero period",
			req:      &AnalysisRequest{Values: weeklySeries(7), PeriodLength: intPtr(0)},
			wantCode: CodeInvalidParameter,
		},
		{
			name:     "unknown growth",
			req:      &AnalysisRequest{Values: weeklySeries(7), IntervalGrowth: stringPtr("cubic")},
			wantCode: CodeInvalidParameter,
		},
		{
			name:     "no series",
			req:      &AnalysisRequest{},
			wantCode: CodeValidationFailed,
		},
		{
			name: "both series forms",
			req: &AnalysisRequest{
				Values:       []float64{1},
				Observations: []analytics.Observation{{TimeIndex: 0, Value: 1}},
			},
			wantCode: CodeValidationFailed,
		},
		{
			name: "gap in indices",
			req: &AnalysisRequest{Observations: []analytics.Observation{
				{TimeIndex: 0, Value: 1}, {TimeIndex: 2, Value: 1},
			}},
			wantCode: CodeInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, nil)
			resp, err := svc.Execute(context.Background(), tt.req)
			assert.Nil(t, resp)
			require.Error(t, err)

			var svcErr *ServiceError
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, tt.wantCode, svcErr.Code)
		})
	}
}

func TestAnalysisService_Execute_ConfidenceDetails(t *testing.T) {
	svc, reg := newTestService(t, nil)

	_, err := svc.Execute(context.Background(), &AnalysisRequest{
		Values:          weeklySeries(7),
		ConfidenceLevel: floatPtr(1.5),
	})
	require.Error(t, err)

	svcErr := err.(*ServiceError)
	assert.Equal(t, "confidence_level", svcErr.Details["parameter"])
	assert.Equal(t, 1.0, counterValue(t, reg, "seasonal_pipeline_runs_total", metrics.OutcomeInvalid))
}

func TestAnalysisService_Execute_MaxObservations(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.MaxObservations = 20
	svc := NewAnalysisService(logging.NewNop(), cfg, nil, nil)

	_, err := svc.Execute(context.Background(), &AnalysisRequest{Values: weeklySeries(7)})
	require.Error(t, err)
	assert.Equal(t, CodeValidationFailed, err.(*ServiceError).Code)
}

func TestAnalysisService_Execute_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Execute(ctx, &AnalysisRequest{Values: weeklySeries(7)})
	require.Error(t, err)
	assert.Equal(t, CodeTimeout, err.(*ServiceError).Code)
}

func TestAnalysisService_Defaults(t *testing.T) {
	svc, _ := newTestService(t, nil)
	assert.Equal(t, 7, svc.Defaults().PeriodLength)
	assert.Equal(t, "sqrt", svc.Defaults().IntervalGrowth)
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"values":[1,2,3],"start_index":5,"horizon":2,"confidence_level":0.9}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, req.Values)
	assert.Equal(t, int64(5), req.StartIndex)
	assert.Equal(t, 2, *req.Horizon)
	assert.Equal(t, 0.9, *req.ConfidenceLevel)
	assert.Nil(t, req.PeriodLength)

	_, err = DecodeRequest([]byte(`{"values":`))
	require.Error(t, err)
	assert.Equal(t, CodeInvalidJSON, err.(*ServiceError).Code)
}

func TestNormalize_ValidationDetails(t *testing.T) {
	req := &AnalysisRequest{}
	err := req.Normalize(context.Background(), config.DefaultConfig().Analysis)
	require.Error(t, err)

	fields, ok := err.(*ServiceError).Details["fields"].([]FieldError)
	require.True(t, ok)
	require.NotEmpty(t, fields)
	assert.Equal(t, "required_without", fields[0].Tag)
	assert.Contains(t, []string{"observations", "values"}, fields[0].Field)
}

func TestAnalysisService_Validate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.MaxObservations = 20
	svc := NewAnalysisService(logging.NewNop(), cfg, nil, nil)

	req := &AnalysisRequest{Values: []float64{1, 2, 3}}
	require.NoError(t, svc.Validate(context.Background(), req))
	assert.Nil(t, req.Horizon, "Validate must not fill defaults")
	assert.Empty(t, req.Name)

	err := svc.Validate(context.Background(), &AnalysisRequest{})
	require.Error(t, err)
	assert.Equal(t, CodeValidationFailed, err.(*ServiceError).Code)

	err = svc.Validate(context.Background(), &AnalysisRequest{Values: weeklySeries(7)})
	require.Error(t, err)
	assert.Equal(t, CodeValidationFailed, err.(*ServiceError).Code)
}
