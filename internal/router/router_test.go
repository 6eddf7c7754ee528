package router

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/metrics"
	"github.com/soltixdb/seasonal/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T, mutate func(*config.Config)) *fiber.App {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := logging.NewNop()
	recorder := metrics.New(prometheus.NewRegistry())
	svc := services.NewAnalysisService(logger, cfg, nil, recorder)
	return New(logger, svc, nil, recorder, cfg)
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, 10_000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
	assert.Contains(t, body, `"queue":"memory"`)
}

func TestRouter_AnalyzeAndMetrics(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/v1/analyze", `{"values":[1,2,3,4,5,6,7,8,9,10]}`, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body, services.CodeInsufficientData)

	status, body = do(t, app, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `seasonal_pipeline_runs_total{outcome="insufficient_data"} 1`)
	assert.Contains(t, body, `seasonal_http_requests_total{method="POST",route="/v1/analyze",status="422"} 1`)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.Metrics.Enabled = false })

	status, body := do(t, app, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, "NOT_FOUND")
}

func TestRouter_AuthProtectsV1(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKeys = []string{testKey}
	})

	status, _ := do(t, app, "GET", "/v1/analyze/defaults", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := do(t, app, "GET", "/v1/analyze/defaults", "", map[string]string{"X-API-Key": testKey})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"period_length":7`)

	// Health stays public
	status, _ = do(t, app, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRouter_JobsWithoutQueue(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "POST", "/v1/jobs", `{"values":[1]}`, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, body, "SERVICE_UNAVAILABLE")
}

func TestRouter_NotFound(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, "GET", "/v1/unknown", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, `"path":"/v1/unknown"`)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest("GET", "/v1/analyze/defaults", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}
