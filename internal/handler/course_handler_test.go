package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handout-api/internal/config"
	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/handler"
	"github.com/noah-isme/handout-api/internal/service"
)

type stubCourseService struct {
	courses []dto.CourseResponse
	stats   map[string]dto.CourseStats
}

func (s stubCourseService) List(context.Context) ([]dto.CourseResponse, error) {
	return s.courses, nil
}

func (s stubCourseService) Stats(context.Context) (map[string]dto.CourseStats, error) {
	return s.stats, nil
}

var _ service.CourseService = stubCourseService{}

func TestCourseRoutes(t *testing.T) {
	svc := stubCourseService{
		courses: []dto.CourseResponse{{ID: 1, Name: "Programming 101"}},
		stats:   map[string]dto.CourseStats{"Programming 101": {TotalExercises: 7, Students: 2}},
	}

	app := authenticatedApp(3, "student")
	handler.NewCourseHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1"))

	status, payload := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))
	require.Equal(t, fiber.StatusOK, status)
	require.JSONEq(t, `[{"id":1,"name":"Programming 101","start_date":null,"end_date":null}]`, string(payload.Data))

	status, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, fiber.StatusForbidden, status)

	staff := authenticatedApp(1, "instructor")
	handler.NewCourseHandler(svc, zerolog.Nop()).Register(staff.Group("/api/v1"))
	status, payload = doRequest(t, staff, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, fiber.StatusOK, status)
	require.JSONEq(t, `{"Programming 101":{"total_exercises":7,"students":2}}`, string(payload.Data))
}

func TestHealthCheckReportsProbes(t *testing.T) {
	cfg := config.Config{AppName: "handout-api", AppEnv: "test"}

	app := fiber.New()
	app.Get("/health", handler.HealthCheck(cfg, map[string]handler.HealthProbe{
		"database": func(context.Context) error { return nil },
	}))
	status, payload := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, string(payload.Data), `"database":"ok"`)

	degraded := fiber.New()
	degraded.Get("/health", handler.HealthCheck(cfg, map[string]handler.HealthProbe{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}))
	status, payload = doRequest(t, degraded, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusServiceUnavailable, status)
	require.False(t, payload.Success)
	require.Equal(t, "connection refused", payload.Details["dependencies"].(map[string]interface{})["redis"])
}
