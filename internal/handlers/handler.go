// Package handlers implements the HTTP endpoints of the analyzer.
package handlers

import (
	"context"
	"time"

	"github.com/soltixdb/seasonal/internal/logging"
	"github.com/soltixdb/seasonal/internal/queue"
	"github.com/soltixdb/seasonal/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Analyzer runs analyses; *services.AnalysisService implements it
type Analyzer interface {
	Execute(ctx context.Context, req *services.AnalysisRequest) (*services.AnalysisResponse, error)
	Validate(ctx context.Context, req *services.AnalysisRequest) error
	Defaults() services.AnalysisParams
}

// Options configures the optional parts of the handler
type Options struct {
	// RequestTimeout bounds one synchronous analysis; zero means no bound
	RequestTimeout time.Duration
	// Publisher and JobsSubject enable asynchronous job submission
	Publisher   queue.Publisher
	JobsSubject string
	QueueType   string
	Worker      bool
}

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	analyzer Analyzer
	opts     Options
}

// New creates a new handler instance
func New(logger *logging.Logger, analyzer Analyzer, opts Options) *Handler {
	return &Handler{
		logger:   logger,
		analyzer: analyzer,
		opts:     opts,
	}
}

// requestContext derives the analysis context from the request context
func (h *Handler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, h.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
