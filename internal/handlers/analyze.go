package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/seasonal/internal/services"
	"github.com/soltixdb/seasonal/internal/worker"
)

// JobAccepted is returned when an analysis is queued
type JobAccepted struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Subject string `json:"subject"`
}

// Analyze runs one analysis synchronously. Errors are rendered by the app error handler.
// POST /v1/analyze
func (h *Handler) Analyze(c *fiber.Ctx) error {
	req, err := services.DecodeRequest(c.Body())
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c.UserContext())
	defer cancel()

	resp, err := h.analyzer.Execute(ctx, req)
	if err != nil {
		return err
	}

	c.Set("X-Analysis-ID", resp.ID)
	return c.JSON(resp)
}

// Defaults returns the parameters applied when a request omits them
// GET /v1/analyze/defaults
func (h *Handler) Defaults(c *fiber.Ctx) error {
	return c.JSON(h.analyzer.Defaults())
}

// SubmitJob queues an analysis for the worker; the result arrives on the
// results subject.
// POST /v1/jobs
func (h *Handler) SubmitJob(c *fiber.Ctx) error {
	if h.opts.Publisher == nil || h.opts.JobsSubject == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "job queue is not configured")
	}

	req, err := services.DecodeRequest(c.Body())
	if err != nil {
		return err
	}
	if err := h.analyzer.Validate(c.UserContext(), req); err != nil {
		return err
	}

	id, err := worker.Submit(c.UserContext(), h.opts.Publisher, h.opts.JobsSubject, req)
	if err != nil {
		h.logger.Error("Failed to submit analysis job", "subject", h.opts.JobsSubject, "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "failed to queue analysis job")
	}

	h.logger.Debug("Analysis job queued", "id", id, "subject", h.opts.JobsSubject)
	return c.Status(fiber.StatusAccepted).JSON(JobAccepted{
		ID:      id,
		Status:  "queued",
		Subject: h.opts.JobsSubject,
	})
}
