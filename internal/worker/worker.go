// Package worker consumes analysis jobs from the queue and publishes their results.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/metrics"
	"github.com/soltixdb/seasonal/internal/queue"
	"github.com/soltixdb/seasonal/internal/services"
)

// AnalysisJob is the message consumed from the jobs subject
type AnalysisJob struct {
	ID      string                    `json:"id"`
	Request *services.AnalysisRequest `json:"request"`
}

// AnalysisJobResult is published on the results subject for every accepted job
type AnalysisJobResult struct {
	ID          string                     `json:"id"`
	Status      string                     `json:"status"`
	Response    *services.AnalysisResponse `json:"response,omitempty"`
	Error       *services.ServiceError     `json:"error,omitempty"`
	CompletedAt string                     `json:"completed_at"`
}

// Job result statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Executor runs one analysis
type Executor interface {
	Execute(ctx context.Context, req *services.AnalysisRequest) (*services.AnalysisResponse, error)
}

// Worker runs analysis jobs with bounded concurrency. Every accepted job is
// acknowledged; failures travel back as failed results.
type Worker struct {
	cfg      config.WorkerConfig
	queue    queue.Queue
	executor Executor
	logger   *logging.Logger
	metrics  *metrics.Recorder

	slots chan struct{}
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards started and stopping; wg.Add only happens under mu while
	// stopping is false, so Stop never races an admission against wg.Wait
	mu       sync.Mutex
	started  bool
	stopping bool
}

// New creates a worker. recorder may be nil.
func New(cfg config.WorkerConfig, q queue.Queue, executor Executor, logger *logging.Logger, recorder *metrics.Recorder) (*Worker, error) {
	if q == nil {
		return nil, fmt.Errorf("queue is nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		cfg:      cfg,
		queue:    q,
		executor: executor,
		logger:   logger,
		metrics:  recorder,
		slots:    make(chan struct{}, cfg.Concurrency),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start subscribes to the jobs subject
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("worker already started")
	}
	if w.stopping {
		return fmt.Errorf("worker is stopped")
	}

	if err := w.queue.Subscribe(w.cfg.JobsSubject, w.handleJob); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.cfg.JobsSubject, err)
	}
	w.started = true

	w.logger.Info("Analysis worker started",
		"jobs_subject", w.cfg.JobsSubject,
		"results_subject", w.cfg.ResultsSubject,
		"concurrency", w.cfg.Concurrency)
	return nil
}

// Stop refuses new jobs, unsubscribes, abandons running jobs and waits for
// them to publish. A stopped worker cannot be restarted.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	w.stopping = true
	w.mu.Unlock()

	// Cancel first so a subscription blocked on a free slot can return
	w.cancel()
	err := w.queue.Unsubscribe(w.cfg.JobsSubject)
	w.wg.Wait()

	w.logger.Info("Analysis worker stopped")
	return err
}

// errStopping is returned for jobs that arrive while the worker stops. The
// job is not acknowledged, so a durable backend redelivers it.
var errStopping = errors.New("worker is stopping")

// handleJob blocks until a slot is free, then runs the job in the background.
// Blocking here applies backpressure to the subscription loop.
func (w *Worker) handleJob(data []byte) error {
	select {
	case w.slots <- struct{}{}:
	case <-w.ctx.Done():
		return errStopping
	}

	// select picks at random when a slot and cancellation are both ready
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		<-w.slots
		return errStopping
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer func() { <-w.slots }()
		w.process(data)
	}()
	return nil
}

func (w *Worker) process(data []byte) {
	var job AnalysisJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.logger.Warn("Malformed analysis job",
			"error", err,
			"data_preview", string(data[:min(200, len(data))]))
		w.fail(uuid.New().String(), services.NewServiceErrorWithDetails(
			services.CodeInvalidJSON, "Failed to parse job", map[string]interface{}{"error": err.Error()}))
		return
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Request == nil {
		w.fail(job.ID, services.NewServiceError(services.CodeValidationFailed, "job has no request"))
		return
	}

	ctx := logging.WithJobID(w.ctx, job.ID)
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	resp, err := w.executor.Execute(ctx, job.Request)
	if err != nil {
		w.fail(job.ID, services.FromError(err))
		return
	}

	w.metrics.RecordJob(metrics.OutcomeSuccess)
	w.publish(job.ID, &AnalysisJobResult{
		ID:       job.ID,
		Status:   StatusSucceeded,
		Response: resp,
	})
}

func (w *Worker) fail(id string, svcErr *services.ServiceError) {
	w.metrics.RecordJob(jobOutcome(svcErr))
	w.logger.Warn("Analysis job failed", "job_id", id, "code", svcErr.Code, "error", svcErr)
	w.publish(id, &AnalysisJobResult{
		ID:     id,
		Status: StatusFailed,
		Error:  svcErr,
	})
}

func (w *Worker) publish(id string, result *AnalysisJobResult) {
	result.CompletedAt = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(result)
	if err != nil {
		w.logger.Error("Failed to encode job result", "job_id", id, "error", err)
		return
	}

	// Results are still published while the worker stops
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.queue.Publish(ctx, w.cfg.ResultsSubject, data); err != nil {
		w.metrics.RecordJob(metrics.OutcomePublishFailed)
		w.logger.Error("Failed to publish job result",
			"job_id", id,
			"subject", w.cfg.ResultsSubject,
			"error", err)
	}
}

func jobOutcome(svcErr *services.ServiceError) string {
	switch svcErr.Code {
	case services.CodeInsufficientData:
		return metrics.OutcomeInsufficient
	case services.CodeInvalidParameter, services.CodeInvalidJSON, services.CodeValidationFailed:
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// Submit publishes a job on the configured jobs subject and returns its ID
func Submit(ctx context.Context, p queue.Publisher, subject string, req *services.AnalysisRequest) (string, error) {
	if req == nil {
		return "", errors.New("request is nil")
	}
	job := AnalysisJob{ID: uuid.New().String(), Request: req}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}
	if err := p.Publish(ctx, subject, data); err != nil {
		return "", fmt.Errorf("failed to publish job: %w", err)
	}
	return job.ID, nil
}
