package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/middleware"
	"github.com/noah-isme/handout-api/internal/service"
	"github.com/noah-isme/handout-api/internal/utils"
)

// TelemetryHandler exposes submission and answers endpoints.
type TelemetryHandler struct {
	service       service.TelemetryService
	submitLimiter fiber.Handler
	logger        zerolog.Logger
}

// NewTelemetryHandler creates a telemetry handler. submitLimiter guards submissions
// and may be nil.
func NewTelemetryHandler(service service.TelemetryService, submitLimiter fiber.Handler, logger zerolog.Logger) *TelemetryHandler {
	if submitLimiter == nil {
		submitLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &TelemetryHandler{
		service:       service,
		submitLimiter: submitLimiter,
		logger:        logger.With().Str("component", "telemetry_handler").Logger(),
	}
}

// Register binds telemetry routes.
func (h *TelemetryHandler) Register(router fiber.Router) {
	router.Post("/telemetry", h.submitLimiter, middleware.WithAuth(h.submit, middleware.AuthOptions{RequireUser: true}))
	router.Get("/telemetry/answers", middleware.WithAuth(h.answers, middleware.AuthOptions{RequireUser: true}))
	router.Get("/telemetry/answers/all-students", middleware.WithAuth(h.allStudentsAnswers, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
	router.Get("/courses/:course/telemetry", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *TelemetryHandler) submit(c *fiber.Ctx) error {
	var request dto.TelemetrySubmitRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Submit(requestContext(c), userIDFromContext(c), request)
	if err != nil {
		return handleError(c, h.logger, err, "failed to store telemetry")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "telemetry stored", response)
}

func (h *TelemetryHandler) answersQuery(c *fiber.Ctx) (dto.AnswersQuery, error) {
	all, err := parseQueryBool(c, "all")
	if err != nil {
		return dto.AnswersQuery{}, err
	}
	return dto.AnswersQuery{
		CourseName:    c.Query("course_name"),
		ExerciseSlugs: splitAndTrim(c.Query("exercise_slug")),
		All:           all,
	}, nil
}

func (h *TelemetryHandler) answers(c *fiber.Ctx) error {
	query, err := h.answersQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid all flag")
	}

	answers, err := h.service.Answers(requestContext(c), userIDFromContext(c), query)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load answers")
	}

	return utils.SendSuccess(c, "answers retrieved", answers)
}

func (h *TelemetryHandler) allStudentsAnswers(c *fiber.Ctx) error {
	query, err := h.answersQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid all flag")
	}
	before, err := parseQueryTime(c, "before")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
	}

	answers, err := h.service.AllStudentsAnswers(requestContext(c), dto.AllAnswersQuery{AnswersQuery: query, Before: before})
	if err != nil {
		return handleError(c, h.logger, err, "failed to load answers")
	}

	return utils.SendSuccess(c, "answers retrieved", answers)
}

func (h *TelemetryHandler) list(c *fiber.Ctx) error {
	after, err := parseQueryTime(c, "timestamp")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid timestamp")
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	records, total, err := h.service.List(requestContext(c), dto.TelemetryListQuery{
		CourseName: pathParam(c, "course"),
		After:      after,
		Student:    c.Query("student"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return handleError(c, h.logger, err, "failed to load telemetry")
	}

	return utils.OK(c, records, "telemetry retrieved", fiber.Map{
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}
