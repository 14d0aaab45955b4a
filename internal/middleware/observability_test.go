package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=25ms", latencyBucket(10*time.Millisecond))
	require.Equal(t, "<=100ms", latencyBucket(26*time.Millisecond))
	require.Equal(t, "<=1s", latencyBucket(time.Second))
	require.Equal(t, ">1s", latencyBucket(2*time.Second))
}

func TestObservabilityLogsAPIRequestsOnly(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(zerolog.New(&buf)))
	app.Get("/api/v1/courses/:course/exercises", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/Programming%20101/exercises", nil)
	req.Header.Set(HeaderCorrelationID, "corr-1")
	_, err := app.Test(req, -1)
	require.NoError(t, err)

	line := buf.String()
	require.Contains(t, line, `"level":"warn"`)
	require.Contains(t, line, `"route":"/api/v1/courses/:course/exercises"`)
	require.Contains(t, line, `"correlation_id":"corr-1"`)
	require.Contains(t, line, `"status":404`)

	buf.Reset()
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Empty(t, buf.String())
}
