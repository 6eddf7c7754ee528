// Package metrics records pipeline, job and HTTP metrics with Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_data"
	OutcomeInvalid      = "invalid_parameter"
	OutcomeError        = "error"

	// OutcomePublishFailed counts job results that could not be published
	OutcomePublishFailed = "publish_failed"
)

// Recorder holds every collector of the service. A nil *Recorder is valid and
// records nothing, which keeps callers free of nil checks.
type Recorder struct {
	gatherer prometheus.Gatherer

	pipelineRuns     *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	anomalies        *prometheus.CounterVec
	jobs             *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the default registry.
func New(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: reg,
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seasonal_pipeline_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		pipelineDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "seasonal_pipeline_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seasonal_anomalies_total",
				Help: "Total number of flagged holdout points by type",
			},
			[]string{"type"},
		),
		jobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seasonal_jobs_total",
				Help: "Total number of queue jobs processed by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seasonal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seasonal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		),
	}
}

// ObservePipeline records one pipeline run
func (r *Recorder) ObservePipeline(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(outcome).Inc()
	r.pipelineDuration.Observe(d.Seconds())
}

// RecordAnomaly records one flagged point of the given type
func (r *Recorder) RecordAnomaly(kind string) {
	if r == nil {
		return
	}
	r.anomalies.WithLabelValues(kind).Inc()
}

// RecordJob records one processed queue job
func (r *Recorder) RecordJob(outcome string) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (r *Recorder) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
}

// FiberMiddleware records request counts and latency. Handler errors are
// rendered by the app error handler first so the status label is the one sent.
// The route label uses the matched route template to keep cardinality low.
func (r *Recorder) FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil {
			return c.Next()
		}

		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()

		route := c.Route().Path
		method := c.Method()
		r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		r.httpDuration.WithLabelValues(route, method, statusClass(status)).Observe(time.Since(start).Seconds())

		return nil
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
