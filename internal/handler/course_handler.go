package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/middleware"
	"github.com/noah-isme/handout-api/internal/service"
	"github.com/noah-isme/handout-api/internal/utils"
)

// CourseHandler exposes course listings and totals.
type CourseHandler struct {
	service service.CourseService
	logger  zerolog.Logger
}

// NewCourseHandler creates a course handler.
func NewCourseHandler(service service.CourseService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service: service,
		logger:  logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register binds course routes.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("/courses", middleware.WithAuth(h.list, middleware.AuthOptions{RequireUser: true}))
	router.Get("/stats", middleware.WithAuth(h.stats, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *CourseHandler) list(c *fiber.Ctx) error {
	courses, err := h.service.List(requestContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load courses")
	}
	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CourseHandler) stats(c *fiber.Ctx) error {
	summary, err := h.service.Stats(requestContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load course stats")
	}
	return utils.SendSuccess(c, "course stats retrieved", summary)
}
