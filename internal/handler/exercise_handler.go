package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/middleware"
	"github.com/noah-isme/handout-api/internal/service"
	"github.com/noah-isme/handout-api/internal/utils"
)

// ExerciseHandler exposes exercise configuration endpoints.
type ExerciseHandler struct {
	service service.ExerciseService
	logger  zerolog.Logger
}

// NewExerciseHandler creates an exercise handler.
func NewExerciseHandler(service service.ExerciseService, logger zerolog.Logger) *ExerciseHandler {
	return &ExerciseHandler{
		service: service,
		logger:  logger.With().Str("component", "exercise_handler").Logger(),
	}
}

// Register binds exercise and tag routes.
func (h *ExerciseHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Post("/exercises/:course", middleware.WithAuth(h.configure, staff))
	router.Post("/exercises/:course/:slug/enable", middleware.WithAuth(h.toggle(true), staff))
	router.Post("/exercises/:course/:slug/disable", middleware.WithAuth(h.toggle(false), staff))
	router.Post("/tags/:course/names", middleware.WithAuth(h.updateTagNames, staff))
	router.Get("/courses/:course/exercises", middleware.WithAuth(h.list, middleware.AuthOptions{RequireUser: true}))
}

func (h *ExerciseHandler) configure(c *fiber.Ctx) error {
	var request dto.ExerciseConfigureRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Configure(requestContext(c), pathParam(c, "course"), request)
	if err != nil {
		return handleError(c, h.logger, err, "failed to configure exercises")
	}

	return utils.SendSuccess(c, "exercises configured", result)
}

func (h *ExerciseHandler) toggle(enabled bool) fiber.Handler {
	message := "exercise disabled"
	if enabled {
		message = "exercise enabled"
	}

	return func(c *fiber.Ctx) error {
		if err := h.service.SetEnabled(requestContext(c), pathParam(c, "course"), pathParam(c, "slug"), enabled); err != nil {
			return handleError(c, h.logger, err, "failed to update exercise")
		}
		return utils.SendSuccess(c, message, fiber.Map{"enabled": enabled})
	}
}

func (h *ExerciseHandler) updateTagNames(c *fiber.Ctx) error {
	var names map[string]string
	if err := c.BodyParser(&names); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.UpdateTagNames(requestContext(c), pathParam(c, "course"), names)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update tag names")
	}

	return utils.SendSuccess(c, "tag names updated", result)
}

func (h *ExerciseHandler) list(c *fiber.Ctx) error {
	exercises, err := h.service.List(requestContext(c), pathParam(c, "course"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load exercises")
	}

	return utils.SendSuccess(c, "exercises retrieved", exercises)
}
