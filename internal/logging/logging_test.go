package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/soltixdb/seasonal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lines decodes every JSON log line written to buf
func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLogger_FieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel).With("component", "pipeline")

	log.Info("Pipeline completed", "anomalies", 2, "error", errors.New("boom"))

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "info", got[0]["level"])
	assert.Equal(t, "Pipeline completed", got[0]["message"])
	assert.Equal(t, "pipeline", got[0]["component"])
	assert.Equal(t, float64(2), got[0]["anomalies"])
	assert.Equal(t, "boom", got[0]["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["message"])
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.InfoLevel)

	ctx := WithJobID(WithRequestID(context.Background(), "req-1"), "job-1")
	log.WithContext(ctx).Info("Analysis completed")
	log.WithContext(context.Background()).Info("plain")

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "req-1", got[0]["request_id"])
	assert.Equal(t, "job-1", got[0]["job_id"])
	assert.NotContains(t, got[1], "request_id")
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	assert.Same(t, Global(), FromContext(context.Background()))

	nop := NewNop()
	assert.Same(t, nop, FromContext(WithLogger(context.Background(), nop)))
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seasonal.log")
	log, err := NewFromConfig(config.LoggingConfig{Level: "warn", Format: "json", OutputPath: path})
	require.NoError(t, err)
	require.NotNil(t, log)

	// Unknown levels fall back to info
	log, err = NewFromConfig(config.LoggingConfig{Level: "loud", Format: "console", OutputPath: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestFiberMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.InfoLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(log, DefaultMiddlewareConfig()))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/ok", func(c *fiber.Ctx) error {
		assert.NotEmpty(t, RequestID(c.UserContext()))
		return c.SendString("ok")
	})
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = app.Test(httptest.NewRequest("GET", "/bad", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	_, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)

	got := lines(t, &buf)
	require.Len(t, got, 2, "health must not be logged")
	assert.Equal(t, "info", got[0]["level"])
	assert.Equal(t, "/ok", got[0]["path"])
	assert.Equal(t, "warn", got[1]["level"])
	assert.Equal(t, float64(400), got[1]["status"])
}
